package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

// poller detects changes by comparing directory snapshots.
type poller struct {
	root     string
	interval time.Duration
	skip     func(path string, isDir bool) bool
	state    map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

func newPoller(root string, interval time.Duration, skip func(string, bool) bool) *poller {
	p := &poller{root: root, interval: interval, skip: skip}
	p.state = p.snapshot()
	return p
}

// run polls until ctx is done or stop is closed, passing changes to emit.
func (p *poller) run(ctx context.Context, stop <-chan struct{}, emit func(FileEvent)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			for _, ev := range p.diff() {
				emit(ev)
			}
		}
	}
}

// diff returns the changes since the previous call.
func (p *poller) diff() []FileEvent {
	now := time.Now()
	current := p.snapshot()

	var events []FileEvent
	for path, snap := range current {
		prev, ok := p.state[path]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path, snap := range p.state {
		if _, ok := current[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}

	p.state = current
	return events
}

func (p *poller) snapshot() map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == p.root {
			return nil
		}
		if p.skip(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
	if err != nil {
		slog.Warn("poll_walk_failed", slog.String("root", p.root), slog.String("error", err.Error()))
	}
	return state
}
