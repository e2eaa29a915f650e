package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var sitesJSON bool

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List known sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		sites, err := store.AllSites(cmd.Context())
		if err != nil {
			return err
		}

		if sitesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sites)
		}

		if len(sites) == 0 {
			fmt.Println("No sites recorded.")
			return nil
		}
		for _, s := range sites {
			fmt.Printf("%-12s %-24s %.5f,%.5f\n", s.ID, s.Name, s.Latitude, s.Longitude)
		}
		return nil
	},
}

var sitesDeleteCmd = &cobra.Command{
	Use:   "delete <site-id>",
	Short: "Delete a site and all of its sessions and points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteSite(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted site %s\n", args[0])
		return nil
	},
}

// parseID is shared by the session and point subcommands, which take
// numeric ids as positional arguments.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func init() {
	sitesCmd.Flags().BoolVar(&sitesJSON, "json", false, "output as JSON")
	sitesCmd.AddCommand(sitesDeleteCmd)
	rootCmd.AddCommand(sitesCmd)
}
