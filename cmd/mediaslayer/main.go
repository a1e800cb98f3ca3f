// MediaSlayer CLI - submits one URL and follows the download session in the
// terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/iconidentify/mediaslayer/cmd/mediaslayer/internal/render"
	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/form"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

var version = "dev"

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitStopped = 130
)

type options struct {
	url       string
	format    domain.Format
	quality   domain.Quality
	theme     string
	themeFile string
	plain     bool
	verbose   bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		os.Exit(exitUsage)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	interactive := !opts.plain && term.IsTerminal(int(os.Stdout.Fd()))

	code := run(ctx, opts, form.DefaultConfig(), interactive, os.Stdout, os.Stderr, logger)
	stop()
	os.Exit(code)
}

// parseFlags reads options from args. The URL may also be given as the
// first positional argument.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		opts     options
		format   string
		quality  string
		showVers bool
	)

	fs := flag.NewFlagSet("mediaslayer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.url, "url", "", "YouTube or X (Twitter) URL")
	fs.StringVar(&format, "format", string(domain.DefaultFormat), "output format (mp4, mp3, webm, wav)")
	fs.StringVar(&quality, "quality", string(domain.DefaultQuality), "video quality (1080p, 720p, 480p, 360p)")
	fs.StringVar(&opts.theme, "theme", theme.QuestName, "theme name (plain, quest)")
	fs.StringVar(&opts.themeFile, "theme-file", "", "YAML theme override file")
	fs.BoolVar(&opts.plain, "plain", false, "print progress lines instead of a progress bar")
	fs.BoolVar(&opts.verbose, "v", false, "log session events to stderr")
	fs.BoolVar(&showVers, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if showVers {
		fmt.Fprintf(stderr, "mediaslayer %s\n", version)
		return options{}, flag.ErrHelp
	}

	if opts.url == "" && fs.NArg() > 0 {
		opts.url = fs.Arg(0)
	}

	var err error
	if opts.format, err = domain.ParseFormat(format); err != nil {
		fmt.Fprintf(stderr, "%v: %q\n", err, format)
		return options{}, err
	}
	if opts.quality, err = domain.ParseQuality(quality); err != nil {
		fmt.Fprintf(stderr, "%v: %q\n", err, quality)
		return options{}, err
	}
	return opts, nil
}

// resolveTheme returns the selected theme, applying the override file first
// so it may replace a built-in.
func resolveTheme(opts options) (theme.Theme, error) {
	var extra []theme.Theme
	if opts.themeFile != "" {
		t, err := theme.LoadFile(opts.themeFile)
		if err != nil {
			return theme.Theme{}, err
		}
		extra = append(extra, t)
	}
	set, err := theme.NewSet(opts.theme, extra...)
	if err != nil {
		return theme.Theme{}, err
	}
	return set.Default(), nil
}

// run submits one form and renders it until the session ends. It returns
// the process exit code.
func run(ctx context.Context, opts options, cfg form.Config, interactive bool, stdout, stderr io.Writer, logger *slog.Logger, extra ...form.Option) int {
	th, err := resolveTheme(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading theme: %v\n", err)
		return exitUsage
	}
	styles := render.NewStyles(th)

	done := make(chan domain.FormSnapshot, 1)
	finish := func(snap domain.FormSnapshot) {
		select {
		case done <- snap:
		default:
		}
	}

	formOpts := append([]form.Option{
		form.WithLogger(logger),
		form.WithHooks(form.Hooks{
			OnCompleted: finish,
			OnFailed:    func(snap domain.FormSnapshot, _ error) { finish(snap) },
		}),
	}, extra...)
	f := form.New(cfg, th, formOpts...)
	defer f.Close()

	if err := f.Apply(domain.FormPatch{URL: &opts.url, Format: &opts.format, Quality: &opts.quality}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	fmt.Fprintln(stdout, styles.Header(th))
	fmt.Fprintln(stdout)

	subID, snaps := f.Subscribe()
	defer f.Unsubscribe(subID)

	if _, err := f.Submit(ctx); err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			fmt.Fprintln(stdout, styles.Message(f.Snapshot()))
			return exitFailed
		}
		fmt.Fprintf(stderr, "Error starting download: %v\n", err)
		return exitFailed
	}
	fmt.Fprintln(stdout, styles.Target(f.Snapshot()))

	var r render.Renderer
	if interactive {
		r = render.NewBar(stdout, th)
	} else {
		r = render.NewLines(stdout, th)
	}

	final, err := render.Follow(ctx, snaps, done, r)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr)
			return exitStopped
		}
		fmt.Fprintf(stderr, "Error following download: %v\n", err)
		return exitFailed
	}

	fmt.Fprintln(stdout, styles.Message(final))
	if final.Error != "" {
		return exitFailed
	}
	return exitOK
}
