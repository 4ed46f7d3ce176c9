// Package ui provides the terminal reader for lukija.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/cache"
	"github.com/dgnsrekt/lukija/internal/config"
	"github.com/dgnsrekt/lukija/internal/playback"
)

const (
	statusBarHeight      = 1
	statusMessageTimeout = time.Second * 3
	ellipsis             = "…"
	defaultRateStep      = 0.25
)

// Config contains TUI-specific configuration.
type Config struct {
	Title       string
	Start       int     // Segment to read from on the first start
	Autoplay    bool    // Start reading as soon as the program runs
	RateStep    float64 // Rate change per +/- press
	EnableMouse bool
}

// NewProgram returns a Bubble Tea program reading through d. Driver events
// are forwarded to the program.
func NewProgram(cfg Config, d *playback.Driver) *tea.Program {
	log.Debug("Starting reader", "segments", d.Document().Len(), "autoplay", cfg.Autoplay)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(cfg, d), opts...)
	d.Subscribe(func(ev playback.Event) {
		p.Send(eventMsg(ev))
	})
	return p
}

type (
	eventMsg                playback.Event
	rateChangedMsg          float64
	restartedMsg            struct{}
	statusMessageTimeoutMsg struct{}
)

type model struct {
	driver *playback.Driver
	cfg    Config

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	spinner  spinner.Model

	status    playback.Status
	source    cache.Source
	resolving bool
	follow    bool
	showHelp  bool
	ready     bool

	width  int
	height int

	statusMessage      string
	statusMessageError bool
	statusMessageTimer *time.Timer
}

func newModel(cfg Config, d *playback.Driver) model {
	if cfg.RateStep <= 0 {
		cfg.RateStep = defaultRateStep
	}

	vp := viewport.New(0, 0)
	// Reading keys take precedence over the viewport's paging keys.
	vp.KeyMap.PageDown.SetKeys("pgdown")
	vp.KeyMap.HalfPageDown.SetKeys("ctrl+d")

	return model{
		driver:   d,
		cfg:      cfg,
		keys:     newKeyMap(),
		help:     help.New(),
		viewport: vp,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:   d.Status(),
		follow:   true,
	}
}

func (m model) Init() tea.Cmd {
	if m.cfg.Autoplay {
		return startCmd(m.driver, m.cfg.Start)
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.setSize()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Toggle):
			if m.status.State.Active() {
				return m, stopCmd(m.driver)
			}
			return m, startCmd(m.driver, m.resumeIndex())

		case key.Matches(msg, m.keys.Restart):
			return m, restartCmd(m.driver)

		case key.Matches(msg, m.keys.Faster):
			return m, m.changeRate(m.cfg.RateStep)

		case key.Matches(msg, m.keys.Slower):
			return m, m.changeRate(-m.cfg.RateStep)

		case key.Matches(msg, m.keys.Follow):
			m.follow = !m.follow
			if m.follow {
				m.scrollToCurrent()
			}
			return m, nil

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			m.setSize()
			return m, nil

		case key.Matches(msg, m.keys.Up, m.keys.Down):
			// Manual scrolling stops following the reader.
			m.follow = false
		}

	case eventMsg:
		if cmd := m.handleEvent(playback.Event(msg)); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case rateChangedMsg:
		cmds = append(cmds, m.showStatusMessage(fmt.Sprintf("Rate %.2fx", float64(msg)), false))

	case restartedMsg:
		m.follow = true
		m.status = m.driver.Status()
		m.refresh()

	case spinner.TickMsg:
		if !m.resolving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusMessageError = false
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleEvent applies a driver event to the model.
func (m *model) handleEvent(ev playback.Event) tea.Cmd {
	m.status = m.driver.Status()

	var cmd tea.Cmd
	switch ev.Kind {
	case playback.EventNowPlaying:
		m.refresh()
		if !m.resolving {
			m.resolving = true
			cmd = m.spinner.Tick
		}

	case playback.EventResolved:
		m.resolving = false
		m.source = ev.Source

	case playback.EventStateChanged:
		m.resolving = false
		switch ev.State {
		case playback.StateFailed:
			msg := "Reading failed"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			cmd = m.showStatusMessage(msg, true)
		case playback.StateCompleted:
			if ev.Index < 0 && m.status.Total > 0 {
				cmd = m.showStatusMessage("Finished reading", false)
			}
		}
		m.refresh()
	}
	return cmd
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")
	m.statusBarView(&b)
	if m.showHelp {
		fmt.Fprint(&b, "\n"+helpViewStyle(m.help.View(m.keys)))
	}
	return b.String()
}

func (m *model) setSize() {
	m.viewport.Width = m.width
	m.viewport.Height = m.height - statusBarHeight
	if m.showHelp {
		m.viewport.Height -= strings.Count(m.help.View(m.keys), "\n") + 1
	}
	m.viewport.Height = max(m.viewport.Height, 1)
	m.help.Width = m.width
}

// refresh re-renders the document around the current segment.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	content, _ := renderDocument(m.driver.Document().Segments(), m.status.NowPlaying, m.viewport.Width)
	m.viewport.SetContent(content)
	if m.follow {
		m.scrollToCurrent()
	}
}

func (m *model) scrollToCurrent() {
	if m.status.NowPlaying < 0 {
		return
	}
	_, line := renderDocument(m.driver.Document().Segments(), m.status.NowPlaying, m.viewport.Width)
	if line >= m.viewport.YOffset && line < m.viewport.YOffset+m.viewport.Height {
		return
	}
	m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
}

// resumeIndex is where space starts reading: the interrupted segment after
// a stop or failure, the top after finishing.
func (m model) resumeIndex() int {
	switch m.status.State {
	case playback.StateCancelled, playback.StateFailed:
		if m.status.NowPlaying >= 0 {
			return m.status.NowPlaying
		}
	case playback.StateCompleted:
		return 0
	}
	return m.cfg.Start
}

func (m model) changeRate(delta float64) tea.Cmd {
	v := m.driver.Document().Voice()
	rate := clampRate(v.Rate + delta)
	if rate == v.Rate {
		return nil
	}
	v.Rate = rate

	d := m.driver
	return func() tea.Msg {
		d.SetVoice(v)
		return rateChangedMsg(rate)
	}
}

func clampRate(r float64) float64 {
	return min(max(r, config.MinRate), config.MaxRate)
}

func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessage = msg
	m.statusMessageError = isError
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// Driver commands run off the event loop: Start, Stop and SetVoice wait
// for the running session, which emits events back into the program.

func startCmd(d *playback.Driver, from int) tea.Cmd {
	return func() tea.Msg {
		d.Start(from)
		return nil
	}
}

func stopCmd(d *playback.Driver) tea.Cmd {
	return func() tea.Msg {
		d.Stop()
		return nil
	}
}

func restartCmd(d *playback.Driver) tea.Cmd {
	return func() tea.Msg {
		d.Reset(d.Document().Segments())
		d.Start(0)
		return restartedMsg{}
	}
}
