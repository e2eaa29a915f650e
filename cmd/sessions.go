package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mesure/fieldcap/internal/db"
)

var (
	sessionsSite string
	sessionsJSON bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List capture sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		var sessions []db.Session
		if sessionsSite != "" {
			sessions, err = store.SessionsForSite(ctx, sessionsSite)
		} else {
			sessions, err = store.AllSessions(ctx)
		}
		if err != nil {
			return err
		}

		if sessionsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			state := "open"
			if s.EndedAt != nil {
				state = "ended"
			}
			cal := " "
			if s.IsCalibrated {
				cal = "*"
			}
			started := time.UnixMilli(s.StartedAt).Format("2006-01-02 15:04")
			fmt.Printf("%6d %s %-12s %-6s %s\n", s.ID, cal, s.SiteID, state, started)
		}
		return nil
	},
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Stamp a session as ended",
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
		if err := store.EndSession(cmd.Context(), id, time.Now().UnixMilli()); err != nil {
			return err
		}
		fmt.Printf("Session %d ended\n", id)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and all of its points",
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
		if err := store.DeleteSession(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted session %d\n", id)
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsSite, "site", "", "only sessions for this site")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "output as JSON")
	sessionsCmd.AddCommand(sessionsEndCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
