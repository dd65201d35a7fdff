package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/utils"
	"github.com/MeKo-Tech/shelfocr/internal/variants"
)

// fileResult is one entry of the JSON output.
type fileResult struct {
	File   string           `json:"file"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newMatchCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "match <images...>",
		Short: "Recognize product labels in image files and match them to the catalog",
		Long: `Run every image through the recognition pipeline and report the best
catalog match per image.

Examples:
  shelfocr match frame.jpg
  shelfocr match a.png b.png --format json
  shelfocr match frame.jpg --debug --debug-dir out/debug`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runMatch,
	}
	c.Flags().StringP("format", "f", "text", "output format: text or json")
	c.Flags().Bool("debug", false, "write per-variant overlays and ocr_debug.json")
	c.Flags().String("debug-dir", "", "debug artifact directory")
	c.Flags().IntP("workers", "w", 1, "frames processed in parallel (0 = number of CPUs)")
	return c
}

func (a *app) runMatch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (use text or json)", format)
	}
	if cmd.Flags().Changed("debug") {
		a.cfg.Pipeline.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("debug-dir") {
		a.cfg.Pipeline.DebugDir, _ = cmd.Flags().GetString("debug-dir")
	}
	workers, _ := cmd.Flags().GetInt("workers")

	ctx := cmd.Context()
	analyzer, _, closeAll, err := newAnalyzer(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	ac := analyzer.Config()
	out := make([]fileResult, len(args))
	frames := make([]image.Image, 0, len(args))
	index := make([]int, 0, len(args))
	for i, path := range args {
		out[i].File = path
		img, _, err := utils.LoadImage(path)
		if err != nil {
			out[i].Error = err.Error()
			continue
		}
		if variants.IsEmpty(img) {
			out[i].Error = "camera frame is empty"
			continue
		}
		frames = append(frames, utils.FitFrame(img, ac.Width, ac.Height, ac.Mirror))
		index = append(index, i)
	}

	var failed error
	if len(frames) > 0 {
		in, _, err := analyzer.Input(ctx)
		if err != nil {
			return err
		}
		results, err := analyzer.Pipeline().RunBatch(ctx, frames, in, workers)
		if err != nil {
			slog.Warn("Some frames failed", "error", err)
			failed = err
		}
		for j, res := range results {
			i := index[j]
			if res == nil {
				out[i].Error = "recognition failed"
				continue
			}
			out[i].Result = res
		}
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		for _, r := range out {
			writeTextResult(cmd.OutOrStdout(), r, len(out) > 1)
		}
	}

	for _, r := range out {
		if r.Error != "" {
			return errors.Join(errors.New("one or more images could not be matched"), failed)
		}
	}
	return nil
}

func writeTextResult(w io.Writer, r fileResult, header bool) {
	if header {
		_, _ = fmt.Fprintf(w, "== %s\n", r.File)
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "error: %s\n", r.Error)
		return
	}
	text := r.Result.Text()
	if text == "" {
		text = "(no text)"
	}
	_, _ = fmt.Fprintf(w, "text: %s\n", text)
	if r.Result.Best == nil {
		_, _ = fmt.Fprintf(w, "match: none (%s)\n", r.Result.Reason)
		return
	}
	status := "accepted"
	if !r.Result.Accepted {
		status = "rejected: " + r.Result.Reason
	}
	_, _ = fmt.Fprintf(w, "match: %s (score %.1f, %s)\n", r.Result.Best.Name, r.Result.TotalScore, status)
}
