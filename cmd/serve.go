package cmd

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/capture"
	"mesure/fieldcap/internal/config"
	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/handlers"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}

		store, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		hub := capture.NewHub(store, nil)
		defer hub.Shutdown(cmd.Context())

		mux := http.NewServeMux()
		handlers.Register(mux,
			handlers.NewCaptureHandler(hub),
			handlers.NewCatalogHandler(store),
		)

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		log.Printf("fieldcap listening on %s (db: %s)", cfg.Addr, cfg.DBPath)
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: $FIELDCAP_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}
