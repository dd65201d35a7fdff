package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/framesource"
	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/utils"
)

// watchQueue is the number of frames that may wait for recognition.
const watchQueue = 4

func newWatchCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Match every frame written to a capture directory",
		Long: `Watch a directory for camera captures and print one JSON line per frame
with the recognized text and the catalog match.

The directory defaults to watch.dir from the configuration.

Examples:
  shelfocr watch ./captures
  shelfocr watch ./captures --existing --debounce 1s`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runWatch,
	}
	c.Flags().String("debounce", "", "quiet time before a written file is read (e.g. 500ms)")
	c.Flags().Bool("existing", false, "also match the frames already in the directory")
	return c
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	dir := a.cfg.Watch.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no watch directory given and watch.dir is not set")
	}
	if cmd.Flags().Changed("debounce") {
		a.cfg.Watch.Debounce, _ = cmd.Flags().GetString("debounce")
	}
	debounce, err := a.cfg.WatchDebounce()
	if err != nil {
		return err
	}
	existing, _ := cmd.Flags().GetBool("existing")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, _, closeAll, err := newAnalyzer(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	frames, err := framesource.Watch(ctx, framesource.Config{Dir: dir, Debounce: debounce, Buffer: watchQueue})
	if err != nil {
		return err
	}
	slog.Info("Watching for frames", "dir", dir, "debounce", debounce)

	var initial []string
	if existing {
		if initial, err = framesource.Existing(dir); err != nil {
			return err
		}
	}
	return watchLoop(ctx, analyzer, initial, frames, cmd.OutOrStdout())
}

type pendingFrame struct {
	path string
	done <-chan pipeline.Outcome
}

// watchLoop submits the initial files and then every watched frame to a
// pipeline worker and prints the outcomes in arrival order.
func watchLoop(ctx context.Context, analyzer *analysis.Analyzer, initial []string, frames <-chan framesource.Frame, out io.Writer) error {
	input := func() pipeline.Input {
		in, _, err := analyzer.Input(ctx)
		if err != nil {
			slog.Error("Catalog unavailable", "error", err)
		}
		return in
	}
	worker := pipeline.NewWorker(analyzer.Pipeline(), input, watchQueue)

	pending := make(chan pendingFrame, watchQueue)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		enc := json.NewEncoder(out)
		for pf := range pending {
			o := <-pf.done
			r := fileResult{File: pf.path, Result: o.Result}
			if o.Err != nil {
				r.Error = o.Err.Error()
				slog.Warn("Frame failed", "file", pf.path, "error", o.Err)
			}
			if err := enc.Encode(r); err != nil {
				slog.Error("Failed to write result", "error", err)
			}
		}
	}()

	ac := analyzer.Config()
	submit := func(path string, img image.Image) {
		frame := utils.FitFrame(img, ac.Width, ac.Height, ac.Mirror)
		pending <- pendingFrame{path: path, done: worker.Submit(ctx, frame)}
	}

	for _, path := range initial {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			slog.Warn("Skipping unreadable frame", "file", path, "error", err)
			continue
		}
		submit(path, img)
	}
	for f := range frames {
		slog.Debug("Frame received", "file", f.Path, "width", f.Meta.Width, "height", f.Meta.Height)
		submit(f.Path, f.Image)
	}

	worker.Close()
	close(pending)
	<-printed
	slog.Info("Watch stopped")
	return nil
}
