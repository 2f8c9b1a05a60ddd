package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/KayraNafi/TouchGrass/internal/api"
	"github.com/KayraNafi/TouchGrass/internal/domain"
)

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Follow status changes and reminders live")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print raw JSON")
	rootCmd.AddCommand(statusCmd)
}

var (
	statusWatch bool
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the reminder timer state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if statusWatch {
		return watchStatus(c)
	}

	s, err := c.status(cmd.Context())
	if err != nil {
		return err
	}
	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	printStatus(os.Stdout, s, time.Now())
	return nil
}

func watchStatus(c *client) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := c.streamEvents(ctx, func(event string, data []byte) error {
		switch event {
		case api.EventStatus:
			var snap domain.StatusSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return err
			}
			fmt.Printf("── %s ──\n", time.Now().Format("15:04:05"))
			printStatus(os.Stdout, api.StatusResponse{StatusSnapshot: snap, State: snap.State()}, time.Now())
		case api.EventReminder:
			var rec domain.ReminderRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			if rec.Delivered {
				fmt.Printf("* %s reminder: %s\n", rec.Kind, rec.Message)
			} else {
				fmt.Printf("! %s reminder not delivered: %s\n", rec.Kind, rec.Error)
			}
		}
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
