// Package tui is the terminal workout screen. Every frame is rendered from
// the session view, so the screen keeps no workout state of its own beyond
// the pending rep adjustment.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/claude/repclock/internal/events"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/session"
)

// eventBuffer bounds the events queued between the session and the screen.
const eventBuffer = 64

// Controller is the part of a session the screen drives.
type Controller interface {
	View() session.View
	Subscribe(l events.Listener)
	Start()
	TogglePause()
	FinishSet(actualReps int, actualWeight float64, notes string)
	FinishRound(actuals []models.RoundActual)
	SkipExercise()
	SkipRound()
	StartRest(override time.Duration)
	Stop()
}

// EventMsg carries a session event into the program.
type EventMsg events.Event

// Model is the bubbletea model of the workout screen.
type Model struct {
	ctrl   Controller
	events <-chan events.Event
	keys   keyMap
	help   help.Model
	bar    progress.Model

	view      session.View
	repsDelta int
	lastEvent events.Type
	width     int
	quitting  bool
}

// New builds the screen for ctrl. Events arriving on ch trigger a redraw.
func New(ctrl Controller, ch <-chan events.Event) Model {
	return Model{
		ctrl:   ctrl,
		events: ch,
		keys:   defaultKeys(),
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		view:   ctrl.View(),
	}
}

// Run subscribes to ctrl and runs the screen until the user quits or ctx
// is canceled. Listener sends never block: a full buffer drops the event,
// and the next redraw reads the session state afresh.
func Run(ctx context.Context, ctrl Controller, opts ...tea.ProgramOption) error {
	ch := make(chan events.Event, eventBuffer)
	ctrl.Subscribe(forward(ch))
	defer ctrl.Subscribe(nil)

	opts = append(opts, tea.WithContext(ctx))
	_, err := tea.NewProgram(New(ctrl, ch), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func forward(ch chan<- events.Event) events.Listener {
	return func(ev events.Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return EventMsg(<-ch)
	}
}

// Init starts a fresh session and begins listening for events. A restored
// session keeps the phase it was saved in.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), m.startCmd())
}

func (m Model) startCmd() tea.Cmd {
	if m.view.Active || m.view.Status != models.StatusInProgress {
		return nil
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Start()
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		if msg.Type != events.TimerUpdate {
			m.lastEvent = msg.Type
		}
		if msg.Type == events.SetFinished || msg.Type == events.RoundFinished {
			m.repsDelta = 0
		}
		m.view = m.ctrl.View()
		return m, waitForEvent(m.events)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.bar.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		m.ctrl.TogglePause()
	case key.Matches(msg, m.keys.Finish):
		m.finish()
	case key.Matches(msg, m.keys.More):
		m.repsDelta++
	case key.Matches(msg, m.keys.Less):
		if m.plannedReps()+m.repsDelta > 0 {
			m.repsDelta--
		}
	case key.Matches(msg, m.keys.Skip):
		if v.WorkoutType == models.Circuit {
			m.ctrl.SkipRound()
		} else {
			m.ctrl.SkipExercise()
		}
		m.repsDelta = 0
	case key.Matches(msg, m.keys.Rest):
		m.ctrl.StartRest(0)
	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Stop()
	default:
		return m, nil
	}
	m.view = m.ctrl.View()
	return m, nil
}

// finish records the current set, or the whole round on a circuit day, at
// the planned values plus the pending rep adjustment.
func (m *Model) finish() {
	v := m.view
	if v.WorkoutType == models.Circuit {
		actuals := make([]models.RoundActual, 0, len(v.Exercises))
		for i, ex := range v.Exercises {
			actuals = append(actuals, models.RoundActual{
				ExerciseIndex: i,
				Reps:          max(ex.Reps+m.repsDelta, 0),
				Weight:        ex.Weight,
			})
		}
		m.ctrl.FinishRound(actuals)
	} else {
		m.ctrl.FinishSet(max(v.Exercise.Reps+m.repsDelta, 0), v.Exercise.Weight, "")
	}
	m.repsDelta = 0
}

func (m Model) plannedReps() int {
	if m.view.WorkoutType == models.Circuit {
		low := 0
		for i, ex := range m.view.Exercises {
			if i == 0 || ex.Reps < low {
				low = ex.Reps
			}
		}
		return low
	}
	return m.view.Exercise.Reps
}

// Quitting reports whether the user asked to leave the screen.
func (m Model) Quitting() bool {
	return m.quitting
}
