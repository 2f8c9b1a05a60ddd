package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/KayraNafi/TouchGrass/internal/api"
)

func init() {
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Send a reminder now without touching the timer",
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	var resp api.PreviewResponse
	if err := c.do(cmd.Context(), http.MethodPost, "/api/preview", nil, &resp); err != nil {
		return err
	}
	if !resp.Reminder.Delivered {
		return fmt.Errorf("preview not delivered: %s", resp.Reminder.Error)
	}
	fmt.Printf("Sent: %s\n", resp.Reminder.Message)
	return nil
}
