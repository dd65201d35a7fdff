// Package framesource turns image files dropped into a directory into
// decoded frames, for kiosks whose camera software writes captures to disk.
package framesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MeKo-Tech/shelfocr/internal/utils"
)

// DefaultDebounce is how long a file must stay unchanged before it is read.
const DefaultDebounce = 500 * time.Millisecond

// Frame is one decoded capture.
type Frame struct {
	Path  string
	Image image.Image
	Meta  utils.ImageMetadata
	At    time.Time
}

// Config configures a directory watch.
type Config struct {
	Dir      string
	Debounce time.Duration
	// Buffer is the frame channel capacity.
	Buffer int
}

// Watch emits a Frame for every supported image created or rewritten in
// cfg.Dir once it has been quiet for cfg.Debounce. The channel closes when
// ctx is done or the watcher fails.
func Watch(ctx context.Context, cfg Config) (<-chan Frame, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}
	slog.Info("Watching for frames", "dir", cfg.Dir, "debounce", cfg.Debounce)

	out := make(chan Frame, cfg.Buffer)
	go run(ctx, w, cfg.Debounce, out)
	return out, nil
}

func run(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, out chan<- Frame) {
	defer close(out)
	defer func() { _ = w.Close() }()

	pending := map[string]time.Time{}
	ticker := time.NewTicker(max(debounce/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isFrameFile(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("Watch error", "error", err)
		case now := <-ticker.C:
			for _, path := range stable(pending, now, debounce) {
				delete(pending, path)
				frame, err := load(path)
				if err != nil {
					slog.Warn("Skipping unreadable frame", "path", path, "error", err)
					continue
				}
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// stable returns the pending paths quiet for at least debounce, oldest first.
func stable(pending map[string]time.Time, now time.Time, debounce time.Duration) []string {
	var ready []string
	for path, t := range pending {
		if now.Sub(t) >= debounce {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if !pending[ready[i]].Equal(pending[ready[j]]) {
			return pending[ready[i]].Before(pending[ready[j]])
		}
		return ready[i] < ready[j]
	})
	return ready
}

func load(path string) (Frame, error) {
	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Path: path, Image: img, Meta: meta, At: time.Now()}, nil
}

// isFrameFile ignores unsupported files and the overlays written by debug
// runs, so a debug directory inside the watched one does not loop.
func isFrameFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.Contains(name, "_overlay.") {
		return false
	}
	return utils.IsSupportedImage(name)
}

// Existing lists the frame files already in dir, sorted by name.
func Existing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
