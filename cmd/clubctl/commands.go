package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/sportsclub/internal/database"
	"github.com/iliyamo/sportsclub/internal/jobs"
	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/slot"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := database.Migrate(cmd.Context(), app.db)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d statements\n", n)
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Return equipment from bookings that have ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.tasks.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("scanned %d, released %d, failed %d\n", res.Scanned, res.Released, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d bookings could not be released", res.Failed)
			}
			return nil
		},
	}
}

// parseCutoff reads a club-time date. Empty means now. A cutoff in the past
// is raised to now so bookings that already started are never cancelled.
func parseCutoff(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return now, nil
	}
	t, err := time.ParseInLocation(slot.DateLayout, strings.TrimSpace(s), slot.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("cutoff must be YYYY-MM-DD: %w", err)
	}
	if t.Before(now) {
		return now, nil
	}
	return t, nil
}

func resetCmd() *cobra.Command {
	var cutoff string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Cancel every booking starting on or after the cutoff date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseCutoff(cutoff, time.Now())
			if err != nil {
				return err
			}
			n, err := app.sweeper.Reset(cmd.Context(), at)
			if err != nil {
				return err
			}
			fmt.Printf("cancelled %d bookings from %s\n", n, at.In(slot.Location).Format(slot.DateLayout+" "+slot.ClockLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "first club-time date to cancel (default now)")
	return cmd
}

func remindCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Warn coaches about the next weekly reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				sent, err := app.tasks.Remind(cmd.Context())
				if err != nil {
					return err
				}
				if !sent {
					fmt.Printf("not a reminder day, the reset is not %d days away\n", jobs.ReminderLeadDays)
				}
				return nil
			}
			next, err := app.tasks.NextReset()
			if err != nil {
				return err
			}
			n := app.sweeper.RemindReset(cmd.Context(), next)
			fmt.Printf("reminded %d coaches about %s\n", n, next.In(slot.Location).Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send even when the reset is not two days away")
	return cmd
}

func promoteCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !model.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			if err := app.users.SetRole(cmd.Context(), args[0], role); err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", strings.ToLower(strings.TrimSpace(args[0])), role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", model.RoleExco, "role to assign")
	return cmd
}
