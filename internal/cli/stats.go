package cli

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scheduler counters since the daemon started",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	var st domain.EngineStats
	if err := c.do(cmd.Context(), http.MethodGet, "/api/stats", nil, &st); err != nil {
		return err
	}
	printStats(os.Stdout, st)
	return nil
}
