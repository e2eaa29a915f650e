package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/db"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "fieldcap",
	Short: "Field measurement capture over AR pose data",
	Long: `fieldcap stores calibrated measurement sessions for surveyed sites.

Each session belongs to a site identified by a QR payload. Once the
session origin is calibrated, placed points are chained together and
every distance is recorded relative to the previous point.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the capture database (default: $FIELDCAP_DB or fieldcap.db)")
}

// DiscoverDB resolves the database path: the FIELDCAP_DB environment
// variable wins, then the --db flag, then "fieldcap.db" in the
// working directory.
func DiscoverDB() string {
	if env := os.Getenv("FIELDCAP_DB"); env != "" {
		return env
	}
	if dbPath != "" {
		return dbPath
	}
	return "fieldcap.db"
}

// OpenDatabase opens (creating if needed) the capture database.
func OpenDatabase() (*db.DB, error) {
	path := DiscoverDB()
	d, err := db.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return d, nil
}
