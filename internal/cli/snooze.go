package cli

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KayraNafi/TouchGrass/internal/api"
)

func init() {
	snoozeCmd.Flags().BoolVar(&snoozeClear, "clear", false, "End the current snooze")
	rootCmd.AddCommand(snoozeCmd)
}

var snoozeClear bool

var snoozeCmd = &cobra.Command{
	Use:   "snooze MINUTES",
	Short: "Hold reminders for a number of minutes",
	Example: `  touchgrass snooze 15
  touchgrass snooze --clear`,
	Args: func(cmd *cobra.Command, args []string) error {
		if snoozeClear {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runSnooze,
}

func runSnooze(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	if snoozeClear {
		if _, err := c.command(cmd.Context(), http.MethodDelete, "/api/snooze", nil); err != nil {
			return err
		}
		fmt.Println("Snooze cleared.")
		return nil
	}

	minutes, err := parseMinutes(args[0])
	if err != nil {
		return err
	}
	s, err := c.command(cmd.Context(), http.MethodPost, "/api/snooze", api.SnoozeRequest{Minutes: minutes})
	if err != nil {
		return err
	}
	if s.SnoozedUntil != nil {
		fmt.Printf("Snoozed until %s.\n", s.SnoozedUntil.Local().Format("15:04"))
	}
	return nil
}

// parseMinutes accepts a positive whole number of minutes.
func parseMinutes(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("minutes must be a positive whole number, got %q", s)
	}
	return uint32(n), nil
}
