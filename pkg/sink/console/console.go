package console

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	log "github.com/echocat/slf4g"

	"github.com/blaubaer/presence-monitor/pkg/presence"
)

const Title = "Presence Monitor"

// Console replaces the content of the terminal with a panel showing the
// latest state of every monitored signal.
type Console struct {
	signals presence.Signals
	out     io.Writer
	mutex   sync.Mutex

	frame   lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	active  lipgloss.Style
	passive lipgloss.Style
	muted   lipgloss.Style
}

func New(out io.Writer, signals presence.Signals) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		signals: signals,
		out:     out,

		frame:   r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		title:   r.NewStyle().Bold(true),
		label:   r.NewStyle().Width(12),
		active:  r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		passive: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   r.NewStyle().Faint(true),
	}
}

func (this *Console) GetType() presence.SinkType {
	return presence.SinkTypeConsole
}

func (this *Console) Publish(_ context.Context, snapshot presence.Snapshot) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	frame := ansi.EraseEntireScreen + ansi.CursorHomePosition + this.Render(snapshot) + "\n"
	if _, err := io.WriteString(this.out, frame); err != nil {
		log.WithError(err).
			Debug("Cannot render console panel.")
	}
}

// Render returns the panel without clearing the screen.
func (this *Console) Render(snapshot presence.Snapshot) string {
	lines := []string{this.title.Render(Title)}
	for _, signal := range this.signals {
		lines = append(lines, this.label.Render(labelOf(signal)+":")+this.valueOf(snapshot, signal))
	}
	if !snapshot.CapturedAt.IsZero() {
		lines = append(lines, this.muted.Render("updated "+snapshot.CapturedAt.Format("15:04:05")))
	}
	return this.frame.Render(strings.Join(lines, "\n"))
}

func (this *Console) valueOf(snapshot presence.Snapshot, signal presence.Signal) string {
	value := strings.ToUpper(snapshot.StateOf(signal))
	if snapshot.IsActive(signal) {
		return this.active.Render(value)
	}
	return this.passive.Render(value)
}

func labelOf(signal presence.Signal) string {
	switch signal {
	case presence.SignalMicrophone:
		return "Microphone"
	case presence.SignalCamera:
		return "Camera"
	default:
		return signal.String()
	}
}

func (this *Console) Dispose() error {
	return nil
}
