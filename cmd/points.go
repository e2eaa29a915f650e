package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/geo"
)

var (
	pointsSession int64
	pointsJSON    bool
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List points placed in a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		points, err := store.PointsForSession(cmd.Context(), pointsSession)
		if err != nil {
			return err
		}

		if pointsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(points)
		}

		if len(points) == 0 {
			fmt.Println("No points in session.")
			return nil
		}
		for _, p := range points {
			line := fmt.Sprintf("%6d #%-3d %-12s (%.3f, %.3f, %.3f)",
				p.ID, p.OrderIndex, p.Label,
				p.RelativeToOrigin.X, p.RelativeToOrigin.Y, p.RelativeToOrigin.Z)
			if p.Chain != nil {
				line += fmt.Sprintf("  %s from %d",
					geo.FormatDistance(float64(p.Chain.Distance)), p.Chain.PreviousID)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var pointsDeleteCmd = &cobra.Command{
	Use:   "delete <point-id>",
	Short: "Delete a single point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := store.DeletePoint(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted point %d\n", id)
		return nil
	},
}

func init() {
	pointsCmd.Flags().Int64Var(&pointsSession, "session", 0, "session id to list")
	pointsCmd.Flags().BoolVar(&pointsJSON, "json", false, "output as JSON")
	pointsCmd.MarkFlagRequired("session")
	pointsCmd.AddCommand(pointsDeleteCmd)
	rootCmd.AddCommand(pointsCmd)
}
