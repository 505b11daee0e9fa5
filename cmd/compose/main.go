// Command compose burns overlay text and the brand watermark onto images
// without running the studio server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/walljourney/mindset/internal/compositor"
)

type options struct {
	text      string
	outDir    string
	fontPath  string
	timeout   time.Duration
	maxPixels int
	parallel  int
	verbose   bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(os.Stderr).ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(logOut io.Writer) *cobra.Command {
	opts := &options{}
	logger := log.NewWithOptions(logOut, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           log.InfoLevel,
	})

	cmd := &cobra.Command{
		Use:   "compose [flags] <source>...",
		Short: "Overlay text and the watermark onto images",
		Long: `compose renders the overlay text onto each source image the same way the
studio download does. A source is a local file, an http(s) URL or a data URI.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runCompose(cmd.Context(), logger, opts, args)
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "overlay text (upper-cased when drawn)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.fontPath, "font", "", "TTF/OTF font to use instead of Go Bold")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 20*time.Second, "per-source load timeout")
	cmd.Flags().IntVar(&opts.maxPixels, "max-pixels", compositor.DefaultMaxPixels, "largest source accepted, in pixels")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 4, "images composed at once")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

// runCompose composes every source and returns the written paths in source order.
func runCompose(ctx context.Context, logger *log.Logger, opts *options, sources []string) ([]string, error) {
	compOpts := []compositor.Option{
		compositor.WithLoader(compositor.NewLoader(opts.timeout, true, compositor.WithMaxPixels(opts.maxPixels))),
	}
	if opts.fontPath != "" {
		fonts, err := compositor.LoadFonts(opts.fontPath)
		if err != nil {
			return nil, err
		}
		compOpts = append(compOpts, compositor.WithFonts(fonts))
	}
	comp, err := compositor.New(compOpts...)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	jobs := make([]compositor.Job, len(sources))
	for i, src := range sources {
		jobs[i] = compositor.Job{Source: src, Text: opts.text}
		logger.Debug("queued", "n", i+1, "source", shorten(src))
	}

	start := time.Now()
	results, err := comp.ComposeAll(ctx, jobs, opts.parallel)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(results))
	for i, res := range results {
		name := fmt.Sprintf("%s-%d.png", strings.TrimSuffix(res.Filename, ".png"), i+1)
		path := filepath.Join(opts.outDir, name)
		if err := os.WriteFile(path, res.PNG, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		logger.Info("wrote", "path", path, "size", fmt.Sprintf("%dx%d", res.Width, res.Height), "lines", len(res.Lines))
		paths[i] = path
	}
	logger.Debug("done", "images", len(paths), "elapsed", time.Since(start).Round(time.Millisecond))
	return paths, nil
}

// shorten keeps data URIs out of the logs.
func shorten(src string) string {
	if strings.HasPrefix(src, "data:") && len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}
