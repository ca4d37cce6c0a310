package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type StateMsg struct{ State SessionState }
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type TranscriptionMsg struct {
	Text     string
	NoSpeech bool
}
type StatusMsg struct{ Text string }
type ErrorMsg struct{ Text string }
type ChordLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type tickMsg time.Time

const statusHistory = 5

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

var (
	styleRec   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleIdle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleText  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	styleFaint = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleMeter = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

type tuiModel struct {
	state         SessionState
	duration      float64
	level         float64
	lastText      string
	noSpeech      bool
	msgCount      int
	statuses      []string
	chordLine     string
	deviceLine    string
	width, height int
}

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		return m, tuiTick()

	case StateMsg:
		m.state = msg.State
		if msg.State == StateRecording {
			m.duration = 0
			m.level = 0
		}
		if msg.State == StateIdle {
			m.level = 0
		}

	case RecordingTickMsg:
		m.duration = msg.Duration

	case AudioLevelMsg:
		if m.state == StateRecording {
			// smoothed so the meter does not flicker
			m.level = m.level*0.6 + msg.Level*0.4
		}

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.noSpeech = msg.NoSpeech

	case StatusMsg:
		m.statuses = append(m.statuses, msg.Text)
		if len(m.statuses) > statusHistory {
			m.statuses = m.statuses[len(m.statuses)-statusHistory:]
		}

	case ErrorMsg:
		m.statuses = append(m.statuses, "error: "+msg.Text)
		if len(m.statuses) > statusHistory {
			m.statuses = m.statuses[len(m.statuses)-statusHistory:]
		}

	case ChordLineMsg:
		m.chordLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	switch m.state {
	case StateRecording:
		b.WriteString(styleRec.Render(fmt.Sprintf("● REC %.1fs", m.duration)))
		b.WriteString("\n")
		b.WriteString(styleMeter.Render(levelMeter(m.level, 30)))
	case StateTranscribing:
		b.WriteString(styleBusy.Render("… TRANSCRIBING"))
	case StateInjecting:
		b.WriteString(styleBusy.Render("⌨ TYPING"))
	default:
		b.WriteString(styleIdle.Render("○ STANDBY"))
	}
	b.WriteString("\n\n")

	if m.lastText != "" || m.noSpeech {
		b.WriteString(styleTitle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		b.WriteString("\n")
		if m.noSpeech {
			b.WriteString(styleWarn.Render("(no speech detected)"))
		} else {
			wrapWidth := m.width - 2
			if wrapWidth < 10 {
				wrapWidth = 10
			}
			for _, line := range wrapText(m.lastText, wrapWidth) {
				b.WriteString(styleText.Render(line))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	for _, s := range m.statuses {
		if strings.HasPrefix(s, "error: ") {
			b.WriteString(styleError.Render(s))
		} else {
			b.WriteString(styleWarn.Render(s))
		}
		b.WriteString("\n")
	}
	if len(m.statuses) > 0 {
		b.WriteString("\n")
	}

	if m.chordLine != "" {
		b.WriteString(styleFaint.Bold(true).Render(m.chordLine))
		b.WriteString(styleFaint.Render(" hold to dictate"))
		b.WriteString("\n")
	}
	if m.deviceLine != "" {
		b.WriteString(styleFaint.Render(m.deviceLine))
		b.WriteString("\n")
	}
	b.WriteString(styleFaint.Render("v2t " + version))

	return b.String()
}

func levelMeter(level float64, width int) string {
	filled := int(level * 3 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// tuiSink forwards dictation events to the TUI event loop.
type tuiSink struct{}

func (tuiSink) StateChange(s SessionState) { tuiSend(StateMsg{State: s}) }
func (tuiSink) RecordingTick(secs float64) { tuiSend(RecordingTickMsg{Duration: secs}) }
func (tuiSink) AudioLevel(rms float64)     { tuiSend(AudioLevelMsg{Level: rms}) }
func (tuiSink) Status(text string)         { tuiSend(StatusMsg{Text: text}) }
func (tuiSink) Error(text string)          { tuiSend(ErrorMsg{Text: text}) }
func (tuiSink) Transcription(text string, noSpeech bool) {
	tuiSend(TranscriptionMsg{Text: text, NoSpeech: noSpeech})
}
