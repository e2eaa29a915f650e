package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/capture"
	"mesure/fieldcap/internal/db"
	"mesure/fieldcap/internal/geo"
)

var (
	placeSession int64
	placeX       float32
	placeY       float32
	placeZ       float32
	placeLabel   string
	placeJSON    bool
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a measurement point in a session",
	Long: `Appends a point at the given world position. The session must be
calibrated first; the point is chained to the previously placed one
and stores the distance between them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		session, err := store.GetSession(ctx, placeSession)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %d: %w", placeSession, db.ErrNotFound)
		}
		if !session.IsCalibrated {
			return capture.ErrNotCalibrated
		}

		world := geo.Vector3{X: placeX, Y: placeY, Z: placeZ}
		point, err := store.AppendPoint(ctx, placeSession, world, session.Origin, placeLabel)
		if err != nil {
			return err
		}

		if placeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(point)
		}

		fmt.Printf("Placed %s (#%d) in session %d\n", point.Label, point.OrderIndex, placeSession)
		if point.Chain != nil {
			fmt.Printf("  %s from point %d\n",
				geo.FormatDistance(float64(point.Chain.Distance)), point.Chain.PreviousID)
		}
		return nil
	},
}

func init() {
	placeCmd.Flags().Int64Var(&placeSession, "session", 0, "session id to place into")
	placeCmd.Flags().Float32Var(&placeX, "x", 0, "world x (meters)")
	placeCmd.Flags().Float32Var(&placeY, "y", 0, "world y (meters)")
	placeCmd.Flags().Float32Var(&placeZ, "z", 0, "world z (meters)")
	placeCmd.Flags().StringVar(&placeLabel, "label", "", "point label (default: Point N)")
	placeCmd.Flags().BoolVar(&placeJSON, "json", false, "output as JSON")
	placeCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(placeCmd)
}
