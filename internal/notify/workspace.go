// Package notify manages the .kai workspace directory: shared project
// decisions read by agents and the stop signal honoured by the pipeline.
package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DirName is the workspace directory created at the repository root.
const DirName = ".kai"

const (
	decisionsFile = "decisions.md"
	signalsDir    = "signals"
	stopSignal    = "stop"
)

const decisionsTemplate = `# Project Decisions

Conventions every agent follows. Agents read this file before each task.

## Naming Conventions

## Patterns

## Constraints
`

// Workspace watches the signals directory and serves the decisions file.
type Workspace struct {
	dir    string
	logger *zap.Logger

	mu      sync.RWMutex
	stopped bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// Open creates (if needed) and watches the workspace under root.
// A missing fsnotify backend falls back to polling in ShouldStop.
func Open(root string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(filepath.Join(dir, signalsDir), 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	path := filepath.Join(dir, decisionsFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(decisionsTemplate), 0644); err != nil {
			return nil, fmt.Errorf("write decisions template: %w", err)
		}
	}

	w := &Workspace{
		dir:    dir,
		logger: logger.Named("notify"),
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Debug("fsnotify unavailable, polling for signals", zap.Error(err))
		return w, nil
	}
	if err := watcher.Add(filepath.Join(dir, signalsDir)); err != nil {
		watcher.Close()
		w.logger.Debug("watch signals dir", zap.Error(err))
		return w, nil
	}
	w.watcher = watcher
	go w.watch()
	return w, nil
}

func (w *Workspace) watch() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != stopSignal {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// The file may already be cleared by the time the event arrives.
			if _, err := os.Stat(ev.Name); err == nil {
				w.mu.Lock()
				w.stopped = true
				w.mu.Unlock()
				w.logger.Info("stop signal received")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("signal watcher error", zap.Error(err))
		}
	}
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// DecisionsPath returns the path of the decisions file.
func (w *Workspace) DecisionsPath() string {
	return filepath.Join(w.dir, decisionsFile)
}

// Decisions returns the decisions file content, or "" if unreadable.
func (w *Workspace) Decisions() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, err := os.ReadFile(w.DecisionsPath())
	if err != nil {
		return ""
	}
	return string(b)
}

// AppendDecision records a decision under the "## <section>" heading,
// adding the heading at the end of the file if it does not exist yet.
func (w *Workspace) AppendDecision(section, decision string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.DecisionsPath()
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read decisions: %w", err)
	}
	entry := fmt.Sprintf("- %s: %s", time.Now().Format("2006-01-02"), strings.TrimSpace(decision))
	updated := insertUnderHeading(string(b), "## "+section, entry)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return fmt.Errorf("write decisions: %w", err)
	}
	return nil
}

// insertUnderHeading places line at the end of the block that starts
// with heading. The block ends at the next "## " heading.
func insertUnderHeading(doc, heading, line string) string {
	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	start := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == heading {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimRight(doc, "\n") + "\n\n" + heading + "\n\n" + line + "\n"
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") {
			end = i
			break
		}
	}
	// Insert after the last non-blank line of the block.
	at := end
	for at > start+1 && strings.TrimSpace(lines[at-1]) == "" {
		at--
	}
	if at == start+1 {
		// Empty section: keep one blank line after the heading.
		out := append([]string{}, lines[:start+1]...)
		out = append(out, "", line)
		if end < len(lines) {
			out = append(out, "")
		}
		out = append(out, lines[end:]...)
		return strings.Join(out, "\n") + "\n"
	}
	out := append([]string{}, lines[:at]...)
	out = append(out, line)
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n") + "\n"
}

// ShouldStop reports whether a stop was requested. The signal file is
// also checked directly in case the watcher missed it.
func (w *Workspace) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(w.dir, signalsDir, stopSignal)); err == nil {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopped
}

// RequestStop writes the stop signal file. Another process running
// against the same repository sees it on its next ShouldStop.
func (w *Workspace) RequestStop() error {
	path := filepath.Join(w.dir, signalsDir, stopSignal)
	return os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)), 0644)
}

// ClearStop removes the stop signal and resets state.
func (w *Workspace) ClearStop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = false
	err := os.Remove(filepath.Join(w.dir, signalsDir, stopSignal))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close stops the watcher.
func (w *Workspace) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}
