package cli

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

func init() {
	addPrefsFlags(prefsSetCmd)
	prefsCmd.PersistentFlags().BoolVar(&prefsJSON, "json", false, "Print raw JSON")
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

var prefsJSON bool

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show reminder preferences",
	Args:  cobra.NoArgs,
	RunE:  runPrefs,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change reminder preferences",
	Example: `  touchgrass prefs set --interval 45
  touchgrass prefs set --activity-detection=false --sound=false`,
	Args: cobra.NoArgs,
	RunE: runPrefsSet,
}

func runPrefs(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	var p domain.Preferences
	if err := c.do(cmd.Context(), http.MethodGet, "/api/preferences", nil, &p); err != nil {
		return err
	}
	return showPreferences(p)
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	update, err := updateFromFlags(cmd)
	if err != nil {
		return err
	}
	if update.IsEmpty() {
		return cmd.Usage()
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	var p domain.Preferences
	if err := c.do(cmd.Context(), http.MethodPatch, "/api/preferences", update, &p); err != nil {
		return err
	}
	return showPreferences(p)
}

func showPreferences(p domain.Preferences) error {
	if prefsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printPreferences(os.Stdout, p)
	return nil
}

func addPrefsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Uint32("interval", 0, "Minutes between breaks (2-240)")
	f.Uint32("idle-threshold", 0, "Minutes away that count as a break (1-30)")
	f.Bool("activity-detection", true, "Restart the countdown after idle periods")
	f.Bool("sound", true, "Play a sound with reminders")
	f.Bool("autostart", false, "Start with the desktop session")
	f.String("theme", "", "UI theme: dark or light")
}

// updateFromFlags builds a partial update from the flags the user set.
func updateFromFlags(cmd *cobra.Command) (domain.PreferencesUpdate, error) {
	var u domain.PreferencesUpdate
	f := cmd.Flags()

	if f.Changed("interval") {
		v, err := f.GetUint32("interval")
		if err != nil {
			return u, err
		}
		u.IntervalMinutes = &v
	}
	if f.Changed("idle-threshold") {
		v, err := f.GetUint32("idle-threshold")
		if err != nil {
			return u, err
		}
		u.IdleThresholdMinutes = &v
	}
	if f.Changed("activity-detection") {
		v, err := f.GetBool("activity-detection")
		if err != nil {
			return u, err
		}
		u.ActivityDetection = &v
	}
	if f.Changed("sound") {
		v, err := f.GetBool("sound")
		if err != nil {
			return u, err
		}
		u.SoundEnabled = &v
	}
	if f.Changed("autostart") {
		v, err := f.GetBool("autostart")
		if err != nil {
			return u, err
		}
		u.AutostartEnabled = &v
	}
	if f.Changed("theme") {
		s, err := f.GetString("theme")
		if err != nil {
			return u, err
		}
		theme, err := domain.ParseThemeMode(s)
		if err != nil {
			return u, err
		}
		u.Theme = &theme
	}
	return u, nil
}
