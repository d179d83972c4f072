// Package tui shows the aircraft above the observer in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/overhead/internal/display"
	"github.com/unklstewy/overhead/pkg/geo"
	"github.com/unklstewy/overhead/pkg/opensky"
)

// ErrClosed is returned by Deliver once the terminal UI has exited.
var ErrClosed = errors.New("terminal display closed")

const metersToFeet = 3.28084
const msToKnots = 1.943844

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("237")).Bold(true)
	groundStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type snapshotMsg display.Snapshot

// Model is the bubbletea model for the aircraft list.
type Model struct {
	snap     display.Snapshot
	received bool
	selected int
}

// NewModel returns an empty model waiting for the first snapshot.
func NewModel() Model {
	return Model{}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = display.Snapshot(msg)
		m.received = true
		if m.selected >= len(m.snap.States) {
			m.selected = max(len(m.snap.States)-1, 0)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.snap.States)-1 {
				m.selected++
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("OVERHEAD"))
	s.WriteString("\n\n")

	if !m.received {
		s.WriteString(dimStyle.Render("Waiting for first poll..."))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(fmt.Sprintf("Observer %s  Area %s\n", m.snap.Center, m.snap.Area))
	s.WriteString(dimStyle.Render(fmt.Sprintf("Cycle %s at %s", m.snap.CycleID, m.snap.Taken.Local().Format("15:04:05"))))
	s.WriteString("\n\n")

	s.WriteString(headerStyle.Render(fmt.Sprintf("%-9s %-7s %-20s %8s %6s %5s %7s %4s %-7s",
		"CALLSIGN", "ICAO24", "COUNTRY", "ALT(ft)", "GS(kt)", "HDG", "DST(km)", "ELV", "SOURCE")))
	s.WriteString("\n")

	if len(m.snap.States) == 0 {
		s.WriteString(dimStyle.Render("  No aircraft in area"))
		s.WriteString("\n")
	}
	for i, st := range m.snap.States {
		line := formatRow(m.snap.Center, st)
		switch {
		case i == m.selected:
			line = selectedStyle.Render(line)
		case st.OnGround:
			line = groundStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%d aircraft\n", m.snap.Count))
	s.WriteString(dimStyle.Render("↑/↓: Select  Q: Quit"))
	return s.String()
}

func formatRow(center geo.Position, st opensky.AircraftState) string {
	alt := "-"
	switch {
	case st.OnGround:
		alt = "ground"
	case st.BaroAltitude != nil:
		alt = fmt.Sprintf("%.0f", *st.BaroAltitude*metersToFeet)
	}
	speed := "-"
	if st.Velocity != nil {
		speed = fmt.Sprintf("%.0f", *st.Velocity*msToKnots)
	}
	heading := "-"
	if st.Heading != nil {
		heading = fmt.Sprintf("%03.0f", *st.Heading)
	}
	dist, elev := "-", "-"
	if look, ok := st.LookFrom(center); ok {
		dist = fmt.Sprintf("%.1f", look.DistanceKm)
		elev = fmt.Sprintf("%.0f", look.Elevation)
	}
	country := st.OriginCountry
	if len(country) > 20 {
		country = country[:20]
	}
	return fmt.Sprintf("%-9s %-7s %-20s %8s %6s %5s %7s %4s %-7s",
		st.Label(), st.ICAO24, country, alt, speed, heading, dist, elev, st.PositionSource)
}

// Sink runs the terminal UI and feeds it snapshots.
type Sink struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// New starts the terminal UI. Options are passed to tea.NewProgram.
func New(opts ...tea.ProgramOption) *Sink {
	s := &Sink{
		program: tea.NewProgram(NewModel(), opts...),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		_, s.err = s.program.Run()
	}()
	return s
}

// Deliver shows snap in the terminal.
func (s *Sink) Deliver(ctx context.Context, snap display.Snapshot) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.program.Send(snapshotMsg(snap))
	return nil
}

// Done is closed when the user quits the terminal UI.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Close stops the terminal UI and restores the terminal.
func (s *Sink) Close() error {
	s.program.Quit()
	<-s.done
	if errors.Is(s.err, tea.ErrProgramKilled) {
		return nil
	}
	return s.err
}
