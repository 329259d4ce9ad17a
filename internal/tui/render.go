package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/session"
	"github.com/claude/repclock/internal/timer"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	phaseStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	restStyle   = phaseStyle.Copy().Background(lipgloss.Color("29"))
	pausedStyle = phaseStyle.Copy().Background(lipgloss.Color("166"))
	clockStyle  = lipgloss.NewStyle().Bold(true).Padding(1, 2)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	deltaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.view
	var b strings.Builder

	b.WriteString(titleStyle.Render(v.DayName))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s", v.WorkoutType, v.Status)))
	b.WriteString("\n\n")

	if v.Status != models.StatusInProgress {
		b.WriteString(summary(v))
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Quit}))
		return b.String()
	}

	b.WriteString(phaseBadge(v))
	b.WriteString("\n")
	phase := v.PhaseClock()
	b.WriteString(clockStyle.Render(phase.Display()))
	b.WriteString("\n")
	if pct, ok := elapsedFraction(phase); ok {
		b.WriteString(m.bar.ViewAs(pct))
		b.WriteString("\n")
	}
	if v.Phase != timer.PhaseWorkout && v.Phase != timer.PhaseNone {
		b.WriteString(dimStyle.Render("total " + v.Total.Display()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.exerciseLine())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("volume %.1f kg · %d sets · %d round entries",
		v.Volume, len(v.Sets), len(v.Rounds))))
	b.WriteString("\n")
	if m.lastEvent != "" {
		b.WriteString(dimStyle.Render("last: " + string(m.lastEvent)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func phaseBadge(v session.View) string {
	label := strings.ToUpper(string(v.Phase))
	switch {
	case !v.Active:
		return phaseStyle.Render("READY")
	case v.Paused:
		return pausedStyle.Render(label + " · PAUSED")
	case v.Phase == timer.PhaseRest:
		return restStyle.Render(label)
	}
	return phaseStyle.Render(label)
}

// elapsedFraction returns how far a countdown has run. Count-up clocks have
// no end and report false.
func elapsedFraction(s clock.State) (float64, bool) {
	if s.Mode != clock.Countdown || s.DurationMs <= 0 {
		return 0, false
	}
	f := 1 - float64(s.ValueMs)/float64(s.DurationMs)
	return min(max(f, 0), 1), true
}

func (m Model) exerciseLine() string {
	v := m.view
	delta := ""
	if m.repsDelta != 0 {
		delta = deltaStyle.Render(fmt.Sprintf(" (%+d)", m.repsDelta))
	}
	if v.WorkoutType == models.Circuit {
		line := fmt.Sprintf("round %d/%d", v.Progress.RoundIndex+1, v.TargetRounds)
		for _, ex := range v.Exercises {
			line += "\n  " + plan(ex)
		}
		return line + delta
	}
	ex := v.Exercise
	return fmt.Sprintf("exercise %d/%d  %s\nset %d/%d  %s%s",
		v.Progress.ExerciseIndex+1, v.ExerciseCount, ex.Name,
		v.Progress.SetIndex+1, ex.Sets, plan(ex), delta)
}

func plan(ex models.Exercise) string {
	switch ex.Type {
	case models.Weighted, models.BodyweightPlus:
		return fmt.Sprintf("%s %d × %g kg", ex.Name, ex.Reps, ex.Weight)
	case models.Timed:
		return fmt.Sprintf("%s %ds", ex.Name, ex.Reps)
	}
	return fmt.Sprintf("%s %d reps", ex.Name, ex.Reps)
}

func summary(v session.View) string {
	title := doneStyle.Render("Workout complete")
	if v.Status == models.StatusAbandoned {
		title = pausedStyle.Render("Workout abandoned")
	}
	return fmt.Sprintf("%s\n\ntime %s\nvolume %.1f kg\nsets %d · round entries %d\n",
		title, clock.Format(worked(v.Total)), v.Volume, len(v.Sets), len(v.Rounds))
}

// worked returns the time a clock has run, whichever way it counts.
func worked(s clock.State) time.Duration {
	if s.Mode == clock.Countdown {
		return max(s.Duration()-s.Value(), 0)
	}
	return s.Value()
}
