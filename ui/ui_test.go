package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/lukija/internal/audio"
	"github.com/dgnsrekt/lukija/internal/cache"
	"github.com/dgnsrekt/lukija/internal/playback"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/dgnsrekt/lukija/internal/synth"
)

var segments = []speech.Segment{
	{Index: 0, Text: "Moi."},
	{Index: 1, Text: "Mitä kuuluu?"},
	{Index: 2, Text: "Hyvää."},
}

func newTestModel(t *testing.T, cfg Config) (model, *playback.Driver, *audio.MockOutput) {
	t.Helper()

	c, err := cache.New(cache.Options{})
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	doc := playback.NewDocument(segments, c, synth.NewMock(0), speech.DefaultVoiceParams())
	out := &audio.MockOutput{Hold: true}
	d, err := playback.NewDriver(doc, out)
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	t.Cleanup(d.Close)

	m := newModel(cfg, d)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(model), d, out
}

func press(m model, k tea.KeyMsg) (model, tea.Cmd) {
	updated, cmd := m.Update(k)
	return updated.(model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestModel_SpaceStartsAndStops(t *testing.T) {
	m, d, out := newTestModel(t, Config{})

	m, cmd := press(m, space)
	if cmd == nil {
		t.Fatal("space returned no command")
	}
	cmd()
	waitFor(t, func() bool { return out.PlayCount() == 1 })

	updated, _ := m.Update(eventMsg(playback.Event{Kind: playback.EventNowPlaying, Index: 0}))
	m = updated.(model)
	if !m.status.State.Active() {
		t.Fatalf("model state = %v, want playing", m.status.State)
	}
	if m.status.NowPlaying != 0 {
		t.Errorf("now playing = %d", m.status.NowPlaying)
	}

	m, cmd = press(m, space)
	if cmd == nil {
		t.Fatal("space while playing returned no command")
	}
	cmd()

	if s := d.Status(); s.State != playback.StateCancelled {
		t.Errorf("driver state = %v, want cancelled", s.State)
	}
}

func TestModel_ResumeIndex(t *testing.T) {
	tests := []struct {
		name  string
		state playback.State
		now   int
		start int
		want  int
	}{
		{name: "idle uses configured start", state: playback.StateIdle, now: -1, start: 1, want: 1},
		{name: "cancelled resumes", state: playback.StateCancelled, now: 2, want: 2},
		{name: "failed retries", state: playback.StateFailed, now: 1, want: 1},
		{name: "completed starts over", state: playback.StateCompleted, now: -1, start: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestModel(t, Config{Start: tt.start})
			m.status.State = tt.state
			m.status.NowPlaying = tt.now
			if got := m.resumeIndex(); got != tt.want {
				t.Errorf("resumeIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestModel_RateKeys(t *testing.T) {
	m, d, _ := newTestModel(t, Config{})

	_, cmd := press(m, runes("+"))
	if cmd == nil {
		t.Fatal("+ returned no command")
	}
	msg := cmd()
	if r, ok := msg.(rateChangedMsg); !ok || float64(r) != 1.25 {
		t.Errorf("message = %#v, want rateChangedMsg(1.25)", msg)
	}
	if got := d.Document().Voice().Rate; got != 1.25 {
		t.Errorf("rate = %v, want 1.25", got)
	}

	_, cmd = press(m, runes("-"))
	cmd()
	if got := d.Document().Voice().Rate; got != 1.0 {
		t.Errorf("rate = %v, want 1.0", got)
	}
}

func TestClampRate(t *testing.T) {
	tests := map[float64]float64{
		0.1: 0.25,
		1.0: 1.0,
		5.0: 4.0,
	}
	for in, want := range tests {
		if got := clampRate(in); got != want {
			t.Errorf("clampRate(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestModel_RateAtLimitDoesNothing(t *testing.T) {
	m, d, _ := newTestModel(t, Config{})
	v := d.Document().Voice()
	v.Rate = 4.0
	d.SetVoice(v)

	if _, cmd := press(m, runes("+")); cmd != nil {
		t.Error("rate change past the limit returned a command")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t, Config{})
	_, cmd := press(m, runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModel_Restart(t *testing.T) {
	m, d, out := newTestModel(t, Config{})

	_, cmd := press(m, runes("r"))
	if _, ok := cmd().(restartedMsg); !ok {
		t.Fatal("restart did not report back")
	}
	waitFor(t, func() bool { return out.PlayCount() == 1 })

	if s := d.Status(); s.State != playback.StatePlaying || s.NowPlaying != 0 {
		t.Errorf("status after restart = %+v", s)
	}
}

func TestModel_EventsTrackResolving(t *testing.T) {
	m, _, _ := newTestModel(t, Config{})

	updated, cmd := m.Update(eventMsg(playback.Event{Kind: playback.EventNowPlaying, Index: 0}))
	m = updated.(model)
	if !m.resolving {
		t.Error("now-playing should start the spinner")
	}
	if cmd == nil {
		t.Error("expected a spinner tick")
	}

	updated, _ = m.Update(eventMsg(playback.Event{Kind: playback.EventResolved, Index: 0, Source: cache.SourceJoined}))
	m = updated.(model)
	if m.resolving {
		t.Error("resolved should stop the spinner")
	}
	if m.source != cache.SourceJoined {
		t.Errorf("source = %v", m.source)
	}
}

func TestModel_FailureShowsError(t *testing.T) {
	m, _, _ := newTestModel(t, Config{})

	err := speech.WithIndex(speech.NewSynthesisError("quota exceeded", nil), 1)
	updated, cmd := m.Update(eventMsg(playback.Event{Kind: playback.EventStateChanged, State: playback.StateFailed, Index: 1, Err: err}))
	m = updated.(model)

	if cmd == nil {
		t.Error("expected a status message timeout command")
	}
	if !m.statusMessageError || !strings.Contains(m.statusMessage, "sentence 2") {
		t.Errorf("status message = %q (error %v)", m.statusMessage, m.statusMessageError)
	}
	if !strings.Contains(m.View(), "quota exceeded") {
		t.Error("view does not show the failure")
	}
}

func TestModel_View(t *testing.T) {
	m, _, _ := newTestModel(t, Config{Title: "uutiset.txt"})
	view := m.View()

	for _, want := range []string{"Lukija", "Moi.", "Mitä kuuluu?", "idle", "uutiset.txt", "fi-FI 1.00x"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = press(m, runes("?"))
	if !strings.Contains(m.View(), "faster") {
		t.Error("help not shown")
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	c, err := cache.New(cache.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	d, err := playback.NewDriver(playback.NewDocument(segments, c, synth.NewMock(0), speech.DefaultVoiceParams()), audio.NewMockOutput(0))
	if err != nil {
		t.Fatal(err)
	}

	if got := newModel(Config{}, d).View(); !strings.Contains(got, "Initializing") {
		t.Errorf("view = %q", got)
	}
}

func TestRenderDocument(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		width    int
		wantLine int
	}{
		{name: "nothing playing", current: -1, width: 12, wantLine: 0},
		{name: "first segment", current: 0, width: 12, wantLine: 0},
		{name: "second segment", current: 1, width: 12, wantLine: 0},
		{name: "third segment wraps", current: 2, width: 12, wantLine: 2},
		{name: "no wrapping", current: 2, width: 0, wantLine: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, line := renderDocument(segments, tt.current, tt.width)
			if line != tt.wantLine {
				t.Errorf("line = %d, want %d", line, tt.wantLine)
			}
			for _, seg := range segments {
				for _, w := range strings.Fields(seg.Text) {
					if !strings.Contains(content, w) {
						t.Errorf("content missing %q", w)
					}
				}
			}
		})
	}
}

func TestStateText(t *testing.T) {
	tests := []struct {
		status playback.Status
		want   string
	}{
		{playback.Status{State: playback.StatePlaying, NowPlaying: 1, Total: 3}, "▶ playing 2/3"},
		{playback.Status{State: playback.StateIdle, NowPlaying: -1, Total: 1200}, "· idle 1,200 sentences"},
		{playback.Status{State: playback.StateFailed, NowPlaying: 0, Total: 3}, "✗ failed 1/3"},
		{playback.Status{State: playback.StateCompleted, NowPlaying: -1}, "✓ completed"},
	}
	for _, tt := range tests {
		if got := stateText(tt.status); got != tt.want {
			t.Errorf("stateText(%+v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestNoteText(t *testing.T) {
	voice := speech.VoiceParams{Language: "fi-FI", Rate: 1.5}
	stats := cache.Stats{Capacity: 64_000_000, Size: 1_500_000, Requests: 3, HitRate: 0.5}

	got := noteText(false, cache.SourceCache, voice, stats)
	for _, want := range []string{"from cache", "fi-FI 1.50x", "1.5 MB of 64 MB", "50% hits"} {
		if !strings.Contains(got, want) {
			t.Errorf("note %q missing %q", got, want)
		}
	}

	if got := noteText(true, cache.SourceCache, voice, stats); !strings.HasPrefix(got, "synthesizing") {
		t.Errorf("resolving note = %q", got)
	}
}
