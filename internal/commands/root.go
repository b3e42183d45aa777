package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cliptag/backend/pkg/client"
)

var rootCmd = &cobra.Command{
	Use:   "cliptag",
	Short: "Tag event boundaries while watching a clip",
	Long: `cliptag records the moments a participant marks while watching a video clip
and talks to a cliptag server to store, list, export and clear them.`,
	SilenceUsage: true,
}

// newClient builds an API client from the persistent flags.
func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	c := client.New(server, nil)
	if token != "" {
		c.SetToken(token)
	}
	return c
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "cliptag")
	}
	return ".cliptag"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetVersion sets the version information
func SetVersion(version, commit, date string) {
	rootCmd.Version = version + " (" + commit + ", " + date + ")"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("server", envOr("CLIPTAG_SERVER", "http://localhost:3001"), "server base URL (env CLIPTAG_SERVER)")
	rootCmd.PersistentFlags().String("token", os.Getenv("CLIPTAG_TOKEN"), "admin bearer token (env CLIPTAG_TOKEN)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(videoURLCmd)
}
