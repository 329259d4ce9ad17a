package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/session"
	"github.com/claude/repclock/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run --day <file>",
	Short: "Start a workout session for a day definition",
	RunE:  runRun,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the saved session",
	RunE:  runResume,
}

var dayPath string

func init() {
	runCmd.Flags().StringVar(&dayPath, "day", "", "workout day file (YAML or JSON)")
	_ = runCmd.MarkFlagRequired("day")
}

func runRun(cmd *cobra.Command, args []string) error {
	day, err := models.LoadDay(dayPath)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := session.New(day, a.sessionConfig())
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	a.log.Info("session created", "session_id", s.ID(), "day", day.Name)
	return runScreen(a, s)
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := session.Load(cmd.Context(), a.sessionConfig())
	if errors.Is(err, session.ErrNotFound) {
		return errors.New("no saved session to resume")
	}
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if rec := s.Record(); rec.Status != models.StatusInProgress {
		s.Close()
		return fmt.Errorf("saved session %s is already %s", rec.ID, rec.Status)
	}
	return runScreen(a, s)
}

// runScreen shows the workout screen and backgrounds the session when the
// screen goes away, whether the user quit or the process was signaled.
func runScreen(a *app, s *session.Session) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	screenErr := tui.Run(ctx, s, tea.WithAltScreen())

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Background(saveCtx); err != nil {
		a.log.Warn("session save on exit failed", "error", err)
		fmt.Fprintln(os.Stderr, "warning: session could not be saved:", err)
	}

	rec := s.Record()
	a.log.Info("session backgrounded", "session_id", rec.ID, "status", rec.Status)
	if rec.Status == models.StatusInProgress {
		fmt.Printf("Session saved. Continue with: repclock resume\n")
	}
	if screenErr != nil {
		return fmt.Errorf("workout screen: %w", screenErr)
	}
	return nil
}
