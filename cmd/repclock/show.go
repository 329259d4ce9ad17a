package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/session"
	"github.com/claude/repclock/internal/timer"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved session",
	RunE:  runShow,
}

var showJSON bool

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the raw session record")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := session.LoadRecord(cmd.Context(), a.store)
	if errors.Is(err, session.ErrNotFound) {
		fmt.Println("No saved session.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SESSION\t%s\n", rec.ID)
	fmt.Fprintf(w, "DAY\t%s (%s)\n", rec.DayName, rec.WorkoutType)
	fmt.Fprintf(w, "STATUS\t%s\n", rec.Status)
	fmt.Fprintf(w, "PHASE\t%s\n", rec.Timer.Phase)
	fmt.Fprintf(w, "TOTAL\t%s\n", rec.Timer.Total.Display())
	if rec.Timer.Phase == timer.PhaseRest {
		fmt.Fprintf(w, "REST LEFT\t%s\n", rec.Timer.Rest.Display())
	}
	fmt.Fprintf(w, "ACTIVE\t%s\n", clock.Format(time.Duration(rec.ActiveMs)*time.Millisecond))
	fmt.Fprintf(w, "VOLUME\t%.1f kg\n", rec.Volume)
	w.Flush()

	if len(rec.Sets) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EXERCISE\tSET\tREPS\tWEIGHT")
		for _, s := range rec.Sets {
			fmt.Fprintf(w, "%s\t%d\t%d/%d\t%g\n", s.ExerciseName, s.SetIndex+1, s.ActualReps, s.PlannedReps, s.ActualWeight)
		}
		w.Flush()
	}
	if len(rec.Rounds) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROUND\tEXERCISE\tREPS\tWEIGHT")
		for _, r := range rec.Rounds {
			fmt.Fprintf(w, "%d\t%s\t%d/%d\t%g\n", r.RoundIndex+1, r.ExerciseName, r.ActualReps, r.PlannedReps, r.ActualWeight)
		}
		w.Flush()
	}
	return nil
}
