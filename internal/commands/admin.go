package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cliptag/backend/pkg/utils"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download every session and event as CSV",
	Long: `Download every session and event as CSV.

Examples:
  cliptag export                 # write clip-tag-export.csv
  cliptag export -o - | less     # write to stdout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("output")
		c := newClient(cmd)
		if path == "-" {
			return c.ExportCSV(cmd.Context(), cmd.OutOrStdout())
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := c.ExportCSV(cmd.Context(), f); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported to %s\n", path)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete ALL sessions and events (irreversible)",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Fprint(cmd.OutOrStdout(), "Delete ALL sessions and events? This cannot be undone. Type 'yes' to confirm: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.TrimSpace(answer) != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "❌ Cancelled.")
				return nil
			}
		}
		if err := newClient(cmd).Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ All sessions and events deleted")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange the admin password for a token",
	Long: `Exchange the admin password for a token. The password is read from stdin.
Export the printed token as CLIPTAG_TOKEN for the admin commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		tok, err := newClient(cmd).Login(cmd.Context(), password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "export CLIPTAG_TOKEN=%s  # valid %ds\n", tok.Token, tok.ExpiresIn)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH (password read from stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	exportCmd.Flags().StringP("output", "o", "clip-tag-export.csv", "output file, - for stdout")
	clearCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}
