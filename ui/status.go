package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/lukija/internal/cache"
	"github.com/dgnsrekt/lukija/internal/playback"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

func stateIcon(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return "▶"
	case playback.StateCompleted:
		return "✓"
	case playback.StateCancelled:
		return "■"
	case playback.StateFailed:
		return "✗"
	default:
		return "·"
	}
}

// stateText describes the session, for example "▶ playing 2/12".
func stateText(s playback.Status) string {
	text := stateIcon(s.State) + " " + s.State.String()
	if s.NowPlaying >= 0 && s.Total > 0 {
		text += fmt.Sprintf(" %d/%d", s.NowPlaying+1, s.Total)
	} else if s.Total > 0 {
		text += fmt.Sprintf(" %s sentences", humanize.Comma(int64(s.Total)))
	}
	return text
}

// noteText is the middle of the status bar: synthesis progress, voice and
// cache use.
func noteText(resolving bool, source cache.Source, voice speech.VoiceParams, stats cache.Stats) string {
	var parts []string
	if resolving {
		parts = append(parts, "synthesizing…")
	} else if stats.Requests > 0 {
		parts = append(parts, "from "+source.String())
	}
	parts = append(parts, fmt.Sprintf("%s %.2fx", voice.Language, voice.Rate))

	cached := humanize.Bytes(uint64(stats.Size)) //nolint:gosec
	if stats.Capacity > 0 {
		cached += " of " + humanize.Bytes(uint64(stats.Capacity)) //nolint:gosec
	}
	parts = append(parts, fmt.Sprintf("cache %s, %.0f%% hits", cached, stats.HitRate*100))
	return strings.Join(parts, " · ")
}

func (m model) statusBarView(b *strings.Builder) {
	logo := logoStyle(" Lukija ")

	state := " " + stateText(m.status) + " "
	if m.status.State == playback.StateFailed {
		state = statusBarErrorStyle(state)
	} else {
		state = statusBarStateStyle(state)
	}

	helpNote := statusBarHelpStyle(" ? Help ")

	var note string
	showStatusMessage := m.statusMessage != ""
	if showStatusMessage {
		note = m.statusMessage
	} else {
		note = noteText(m.resolving, m.source, m.driver.Document().Voice(), m.driver.Document().Cache().Stats())
		if m.resolving {
			note = m.spinner.View() + " " + note
		}
		if m.cfg.Title != "" {
			note = m.cfg.Title + " · " + note
		}
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(state)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	noteStyle := statusBarNoteStyle
	switch {
	case showStatusMessage && m.statusMessageError:
		noteStyle = statusBarErrorStyle
	case showStatusMessage:
		noteStyle = statusBarMessageStyle
	}

	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(state)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(helpNote),
	)

	fmt.Fprint(b, lipgloss.JoinHorizontal(lipgloss.Top,
		logo,
		state,
		noteStyle(note),
		noteStyle(strings.Repeat(" ", padding)),
		helpNote,
	))
}
