package cli

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KayraNafi/TouchGrass/internal/api"
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of reminders to show")
	rootCmd.AddCommand(historyCmd)
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent reminders",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	var resp api.HistoryResponse
	path := fmt.Sprintf("/api/history?limit=%d", historyLimit)
	if err := c.do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	fmt.Printf("Today: %d breaks, %d previews, %d failed\n\n",
		resp.Today.Scheduled, resp.Today.Previews, resp.Today.Failed)
	if len(resp.Reminders) == 0 {
		fmt.Println("No reminders yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tDELIVERED\tMESSAGE")
	for _, r := range resp.Reminders {
		delivered := "yes"
		if !r.Delivered {
			delivered = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.At.Local().Format("Jan 02 15:04"),
			r.Kind,
			delivered,
			r.Message,
		)
	}
	return w.Flush()
}
