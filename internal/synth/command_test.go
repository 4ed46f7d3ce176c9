package synth

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/lukija/internal/speech"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommand_EchoesStdin(t *testing.T) {
	requireShell(t)

	c, err := NewCommand(CommandConfig{Command: "cat", MIMEType: "audio/L16;rate=8000"})
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	audio, err := c.Synthesize(context.Background(), "Hyvää huomenta.", speech.DefaultVoiceParams())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio.Data) != "Hyvää huomenta." {
		t.Errorf("data = %q", audio.Data)
	}
	if audio.MIMEType != "audio/L16;rate=8000" {
		t.Errorf("mime = %q", audio.MIMEType)
	}
}

func TestCommand_Placeholders(t *testing.T) {
	requireShell(t)

	c, err := NewCommand(CommandConfig{Command: `sh -c 'printf "%s %s %s %s" {lang} {voice} {rate} {wpm}'`})
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	audio, err := c.Synthesize(context.Background(), "x", speech.VoiceParams{Language: "fi-FI", Name: "harri", Rate: 2})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if got, want := string(audio.Data), "fi harri 2.00 350"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if audio.MIMEType != "audio/wav" {
		t.Errorf("default mime = %q", audio.MIMEType)
	}
}

func TestCommand_Failures(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name    string
		command string
		text    string
		wantMsg string
	}{
		{name: "non-zero exit", command: `sh -c 'echo ääni puuttuu >&2; exit 3'`, text: "x", wantMsg: "ääni puuttuu"},
		{name: "no output", command: "true", text: "x", wantMsg: "produced no audio"},
		{name: "blank text", command: "cat", text: "  ", wantMsg: "nothing to synthesize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCommand(CommandConfig{Command: tt.command})
			if err != nil {
				t.Fatalf("NewCommand failed: %v", err)
			}
			_, err = c.Synthesize(context.Background(), tt.text, speech.DefaultVoiceParams())
			var se *speech.SynthesisError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want SynthesisError", err)
			}
			if !strings.Contains(se.Error(), tt.wantMsg) {
				t.Errorf("message %q does not contain %q", se.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCommand_Cancelled(t *testing.T) {
	requireShell(t)

	c, err := NewCommand(CommandConfig{Command: "sleep 5"})
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Synthesize(ctx, "x", speech.DefaultVoiceParams())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancelled command was not stopped promptly")
	}
}

func TestNewCommand_Invalid(t *testing.T) {
	if _, err := NewCommand(CommandConfig{Command: `espeak-ng "unterminated`}); err == nil {
		t.Error("expected parse error")
	}
}
