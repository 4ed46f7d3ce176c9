// Package main provides the entry point for the lukija CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/lukija/internal/audio"
	"github.com/dgnsrekt/lukija/internal/cache"
	"github.com/dgnsrekt/lukija/internal/config"
	"github.com/dgnsrekt/lukija/internal/playback"
	"github.com/dgnsrekt/lukija/internal/speech"
	"github.com/dgnsrekt/lukija/internal/synth"
	"github.com/dgnsrekt/lukija/internal/text"
	"github.com/dgnsrekt/lukija/ui"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engine     string
	lookahead  int
	rate       float64
	voiceName  string
	startAt    int
	headless   bool
	mouse      bool

	rootCmd = &cobra.Command{
		Use:   "lukija [FILE|-]",
		Short: "Read Finnish text aloud, sentence by sentence",
		Long: paragraph(
			fmt.Sprintf("\nRead Finnish text aloud with %s.", keyword("the current sentence highlighted")),
		),
		Example: paragraph("lukija uutiset.txt\nlukija --engine google --rate 1.25 kirje.md\ncat runo.txt | lukija --headless"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfigFlag()
		},
		RunE: execute,
	}
)

// source is a readable text.
type source struct {
	reader io.ReadCloser
	path   string
}

// sourceFromArg opens a file, or stdin for "-".
func sourceFromArg(arg string) (*source, error) {
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	r, err := os.Open(config.ExpandPath(arg))
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	p, err := filepath.Abs(arg)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, p}, nil
}

func (s *source) title() string {
	if s.path == "" {
		return "stdin"
	}
	return filepath.Base(s.path)
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// loadConfigFlag reads the file named by --config in place of the default
// search.
func loadConfigFlag() error {
	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(config.ExpandPath(configFile))
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}
	log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
	return nil
}

// loadConfig merges file, environment and flags. Flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Engine = engine
	}
	if flags.Changed("lookahead") {
		cfg.Lookahead = lookahead
	}
	if flags.Changed("rate") {
		cfg.Voice.Rate = rate
	}
	if flags.Changed("voice") {
		cfg.Voice.Name = voiceName
	}
	return cfg.Validate()
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var src *source
	switch {
	case len(args) == 1:
		src, err = sourceFromArg(args[0])
		if err != nil {
			return err
		}
	default:
		// if stdin is a pipe then use stdin for input. note that you can
		// also explicitly use a - to read from stdin.
		yes, err := stdinIsPipe()
		if err != nil {
			return err
		}
		if !yes {
			return cmd.Help()
		}
		src = &source{reader: os.Stdin}
	}
	defer src.reader.Close() //nolint:errcheck

	segments, err := readSegments(src)
	if err != nil {
		return err
	}

	interactive := !headless && term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		logToStderr()
	}

	d, err := newDriver(cfg, segments)
	if err != nil {
		return err
	}
	defer d.Close()

	if viper.ConfigFileUsed() != "" {
		watchConfig(cmd, d)
	}

	if interactive {
		return runTUI(d, src.title())
	}
	return runHeadless(d, os.Stdout)
}

func readSegments(src *source) ([]speech.Segment, error) {
	b, err := io.ReadAll(src.reader)
	if err != nil {
		return nil, fmt.Errorf("unable to read from reader: %w", err)
	}

	content := string(b)
	if text.IsMarkdownFile(src.path) {
		content = text.FromMarkdown(b)
	}

	segments := text.Split(content)
	if len(segments) == 0 {
		return nil, speech.ErrNoSegments
	}
	log.Debug("Loaded text", "path", src.path, "size", humanize.Bytes(uint64(len(b))), "segments", len(segments))
	return segments, nil
}

// newSynthesizer builds the configured engine.
func newSynthesizer(cfg *config.Config) (speech.Synthesizer, error) {
	switch cfg.Engine {
	case config.EngineGoogle:
		g, err := synth.NewGoogle(synth.GoogleConfig{
			APIKey:     cfg.Google.APIKey,
			Endpoint:   cfg.Google.Endpoint,
			SampleRate: cfg.Audio.SampleRate,
			Timeout:    cfg.GoogleTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return synth.Limit(g, cfg.Google.RequestsPerMinute), nil

	case config.EngineCommand:
		return synth.NewCommand(synth.CommandConfig{
			Command:  cfg.Command.Run,
			MIMEType: cfg.Command.MIMEType,
			Timeout:  cfg.CommandTimeout(),
		})

	default:
		m := synth.NewMock(0)
		m.SampleRate = cfg.Audio.SampleRate
		return m, nil
	}
}

func newDriver(cfg *config.Config, segments []speech.Segment) (*playback.Driver, error) {
	s, err := newSynthesizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s engine: %w", cfg.Engine, err)
	}

	out, err := audio.NewOtoOutput(cfg.AudioConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to open audio output: %w", err)
	}

	maxBytes, err := cfg.CacheBytes()
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cache.Options{MaxBytes: maxBytes, Compress: cfg.Cache.Compress})
	if err != nil {
		return nil, fmt.Errorf("unable to create audio cache: %w", err)
	}

	doc := playback.NewDocument(segments, c, s, cfg.VoiceParams())
	d, err := playback.NewDriver(doc, out, playback.WithLookahead(cfg.Lookahead))
	if err != nil {
		c.Close()
		return nil, err
	}

	log.Debug("Driver ready", "engine", cfg.Engine, "voice", cfg.VoiceParams(), "lookahead", cfg.Lookahead, "cache", cfg.Cache.MaxSize)
	return d, nil
}

// watchConfig applies voice changes from the config file while reading.
func watchConfig(cmd *cobra.Command, d *playback.Driver) {
	config.Watch(viper.GetViper(), func(cfg *config.Config) {
		if err := applyFlags(cmd, cfg); err != nil {
			log.Warn("Ignoring configuration change", "err", err)
			return
		}
		if v := cfg.VoiceParams(); v != d.Document().Voice() {
			log.Info("Voice changed in config", "voice", v)
			d.SetVoice(v)
		}
	})
}

func runTUI(d *playback.Driver, title string) error {
	p := ui.NewProgram(ui.Config{
		Title:       title,
		Start:       startAt,
		Autoplay:    true,
		EnableMouse: mouse,
	}, d)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// runHeadless reads aloud, printing each sentence as it starts. SIGINT
// stops playback.
func runHeadless(d *playback.Driver, w io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc := d.Document()
	d.Subscribe(func(ev playback.Event) {
		if ev.Kind != playback.EventNowPlaying {
			return
		}
		if seg, ok := doc.Segment(ev.Index); ok {
			_, _ = fmt.Fprintf(w, "[%d/%d] %s\n", ev.Index+1, doc.Len(), seg.Text)
		}
	})

	done := make(chan struct{})
	d.Start(startAt)
	go func() {
		d.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.Stop()
		<-done
	}

	status := d.Status()
	switch status.State {
	case playback.StateFailed:
		return status.Err
	case playback.StateCancelled:
		log.Info("Reading stopped", "sentence", status.NowPlaying+1)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		_, _ = fmt.Fprintln(w, "Stopped.")
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	defaults := config.Default()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&engine, "engine", "e", defaults.Engine, "synthesis engine (mock, google or command)")
	rootCmd.Flags().IntVarP(&lookahead, "lookahead", "k", defaults.Lookahead, "sentences to synthesize ahead of the one playing")
	rootCmd.Flags().Float64VarP(&rate, "rate", "r", defaults.Voice.Rate, "speaking rate (0.25 to 4.0)")
	rootCmd.Flags().StringVar(&voiceName, "voice", "", "engine voice name")
	rootCmd.Flags().IntVarP(&startAt, "start", "s", 0, "sentence index to start reading from")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "read aloud without the TUI")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := config.Dirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	config.SetDefaults(viper.GetViper())
	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}
}
