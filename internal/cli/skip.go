package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(skipCmd)
}

var skipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Skip the current break and restart the countdown",
	Args:  cobra.NoArgs,
	RunE:  runSkip,
}

func runSkip(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	s, err := c.command(cmd.Context(), http.MethodPost, "/api/skip", nil)
	if err != nil {
		return err
	}
	if s.NextTriggerAt != nil {
		fmt.Printf("Skipped. Next break at %s.\n", s.NextTriggerAt.Local().Format("15:04"))
	} else {
		fmt.Println("Skipped.")
	}
	return nil
}
