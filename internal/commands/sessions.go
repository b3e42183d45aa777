package commands

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/cliptag/backend/internal/models"
	"github.com/cliptag/backend/internal/recorder"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List stored sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		mine, _ := cmd.Flags().GetBool("mine")
		asJSON, _ := cmd.Flags().GetBool("json")

		list, err := newClient(cmd).ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if mine {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			identity, err := recorder.OpenIdentity(dataDir)
			if err != nil {
				return err
			}
			userID, err := identity.UserID()
			_ = identity.Close()
			if err != nil {
				return err
			}
			list = filterByUser(list, userID)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintf(out, "%-36s %-24s %-24s %s\n", "SESSION", "USER", "CLIP START", "EVENTS")
		fmt.Fprintln(out, strings.Repeat("-", 100))
		for _, s := range list {
			times := make([]string, 0, len(s.Events))
			for _, e := range s.Events {
				times = append(times, recorder.FormatTime(e.TimeSeconds))
			}
			fmt.Fprintf(out, "%-36s %-24s %-24s %d %s\n", s.ID, truncate(s.UserID, 24), s.ClipStartTime, len(s.Events), strings.Join(times, " "))
		}
		return nil
	},
}

func filterByUser(list []models.Session, userID string) []models.Session {
	if userID == "" {
		return nil
	}
	out := list[:0:0]
	for _, s := range list {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	sessionsCmd.Flags().Bool("mine", false, "only sessions submitted from this machine's last identity")
	sessionsCmd.Flags().Bool("json", false, "print JSON")
	sessionsCmd.Flags().String("data-dir", defaultDataDir(), "where the participant identity is kept")
}
