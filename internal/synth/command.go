package synth

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/mattn/go-shellwords"
)

// DefaultCommand reads stdin with espeak-ng's Finnish voice and writes WAV.
const DefaultCommand = "espeak-ng -v {lang} -s {wpm} --stdout"

// Upper bound on accepted command output.
const maxCommandOutput = 50 * 1024 * 1024

// CommandConfig holds configuration for the command engine.
type CommandConfig struct {
	// Command line, parsed with shell quoting rules. {voice}, {lang},
	// {rate} and {wpm} are replaced per request.
	Command string

	// MIMEType of the program's stdout. Defaults to audio/wav.
	MIMEType string

	// Timeout per invocation, 0 for none.
	Timeout time.Duration
}

// Command runs an external program per request: text on stdin, audio on stdout.
type Command struct {
	args     []string
	mimeType string
	timeout  time.Duration
}

var _ speech.Synthesizer = (*Command)(nil)

// NewCommand parses the command line.
func NewCommand(cfg CommandConfig) (*Command, error) {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.MIMEType == "" {
		cfg.MIMEType = "audio/wav"
	}

	args, err := shellwords.NewParser().Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}

	return &Command{args: args, mimeType: cfg.MIMEType, timeout: cfg.Timeout}, nil
}

// Synthesize implements speech.Synthesizer.
func (c *Command) Synthesize(ctx context.Context, text string, params speech.VoiceParams) (speech.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return speech.Audio{}, speech.NewSynthesisError("nothing to synthesize", speech.ErrEmptyText)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.expand(params)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec
	cmd.Stdin = strings.NewReader(text)

	// Interrupt first; kill if it has not exited shortly after.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return speech.Audio{}, speech.NewSynthesisError(args[0]+" interrupted", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "no output on stderr"
		}
		return speech.Audio{}, speech.NewSynthesisError(fmt.Sprintf("%s failed: %s", args[0], msg), err)
	}

	if stdout.Len() == 0 {
		return speech.Audio{}, speech.NewSynthesisError(args[0]+" produced no audio", nil)
	}
	if stdout.Len() > maxCommandOutput {
		return speech.Audio{}, speech.NewSynthesisError(
			fmt.Sprintf("%s output too large: %d bytes", args[0], stdout.Len()), nil)
	}

	log.Debug("Command synthesis done", "cmd", args[0], "bytes", stdout.Len(), "took", time.Since(start))

	return speech.Audio{Data: stdout.Bytes(), MIMEType: c.mimeType}, nil
}

// expand substitutes voice placeholders into a copy of the argument list.
func (c *Command) expand(params speech.VoiceParams) []string {
	rate := params.Rate
	if rate <= 0 {
		rate = 1
	}
	lang := params.Language
	if lang == "" {
		lang = speech.DefaultVoiceParams().Language
	}
	// espeak-ng wants a bare language like "fi".
	short, _, _ := strings.Cut(lang, "-")

	r := strings.NewReplacer(
		"{voice}", params.Name,
		"{lang}", strings.ToLower(short),
		"{rate}", strconv.FormatFloat(rate, 'f', 2, 64),
		"{wpm}", strconv.Itoa(int(175*rate)),
	)

	out := make([]string, len(c.args))
	for i, a := range c.args {
		out[i] = r.Replace(a)
	}
	return out
}
