package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cliptag/backend/internal/recorder"
	"github.com/cliptag/backend/internal/tui"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Open the interactive recorder",
	Long: `Open the interactive recorder. Press p to play or pause, space to mark an event
and enter to submit the buffered events. Participant "admin" unlocks export (e) and
clear (x).

Examples:
  cliptag record --study s1 --participant p7
  cliptag record --participant admin --export-path ./export.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		study, _ := cmd.Flags().GetString("study")
		participant, _ := cmd.Flags().GetString("participant")
		duration, _ := cmd.Flags().GetDuration("duration")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		exportPath, _ := cmd.Flags().GetString("export-path")

		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		identity, err := recorder.OpenIdentity(dataDir)
		if err != nil {
			return err
		}
		defer identity.Close()

		api := newClient(cmd)
		fmt.Fprintf(cmd.ErrOrStderr(), "video: %s\n", api.VideoURL())
		rec := recorder.New(recorder.NewClockPlayer(duration), api, recorder.Options{
			StudyID:     study,
			Participant: participant,
			Identity:    identity,
			Logger:      zap.NewNop(),
		})
		vm, err := tui.RunRecorder(rec, exportPath)
		if err != nil {
			return err
		}
		if n := len(vm.Buffered); n > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %d unsubmitted events were discarded\n", n)
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().String("study", "", "study id")
	recordCmd.Flags().String("participant", "", "participant name (\"admin\" for admin mode)")
	recordCmd.Flags().Duration("duration", 0, "clip length; caps the playhead (0 = unbounded)")
	recordCmd.Flags().String("data-dir", defaultDataDir(), "where the participant identity is kept")
	recordCmd.Flags().String("export-path", "clip-tag-export.csv", "file written by the admin export key")
}
