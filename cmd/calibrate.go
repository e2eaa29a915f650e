package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/geo"
)

var (
	calibrateSession int64
	calibrateX       float32
	calibrateY       float32
	calibrateZ       float32
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Set a session's origin pose",
	Long: `Records the calibration origin for a session. All points placed
afterwards carry positions relative to this origin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		origin := geo.Vector3{X: calibrateX, Y: calibrateY, Z: calibrateZ}
		if err := store.CalibrateSession(cmd.Context(), calibrateSession, origin, geo.Identity); err != nil {
			return err
		}
		fmt.Printf("Session %d calibrated at (%.3f, %.3f, %.3f)\n",
			calibrateSession, origin.X, origin.Y, origin.Z)
		return nil
	},
}

func init() {
	calibrateCmd.Flags().Int64Var(&calibrateSession, "session", 0, "session id to calibrate")
	calibrateCmd.Flags().Float32Var(&calibrateX, "x", 0, "origin x (meters)")
	calibrateCmd.Flags().Float32Var(&calibrateY, "y", 0, "origin y (meters)")
	calibrateCmd.Flags().Float32Var(&calibrateZ, "z", 0, "origin z (meters)")
	calibrateCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(calibrateCmd)
}
