package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Stop reminders until resumed",
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume reminders with a fresh countdown",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func runPause(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if _, err := c.command(cmd.Context(), http.MethodPost, "/api/pause", nil); err != nil {
		return err
	}
	fmt.Println("Reminders paused.")
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	s, err := c.command(cmd.Context(), http.MethodPost, "/api/resume", nil)
	if err != nil {
		return err
	}
	fmt.Println("Reminders resumed.")
	if s.NextTriggerAt != nil {
		fmt.Printf("Next break at %s.\n", s.NextTriggerAt.Local().Format("15:04"))
	}
	return nil
}
