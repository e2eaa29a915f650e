package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/capture"
)

var (
	scanNewSession bool
	scanJSON       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <payload>",
	Short: "Resolve a QR payload into a site and session",
	Long: `Parses a scanned QR payload, creating the site on first sight and
reusing the site's latest session unless --new-session is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		result, err := capture.ResolveScan(ctx, store, args[0])
		if err != nil {
			return err
		}
		if scanNewSession && result.Resumed {
			session, err := capture.StartSession(ctx, store, result.Site.ID)
			if err != nil {
				return err
			}
			result.Session = session
			result.Resumed = false
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		verb := "started"
		if result.Resumed {
			verb = "resumed"
		}
		fmt.Printf("Site %s (%s) at %.5f,%.5f\n",
			result.Site.ID, result.Site.Name, result.Site.Latitude, result.Site.Longitude)
		fmt.Printf("Session %d %s (calibrated: %v)\n",
			result.Session.ID, verb, result.Session.IsCalibrated)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanNewSession, "new-session", false, "force a fresh session even when one could be resumed")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(scanCmd)
}
