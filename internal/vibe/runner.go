// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vibe

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/stream"
	"github.com/animusuno/animus-chat/internal/util"
)

// MinInterval is the shortest time between two runs.
const MinInterval = 10 * time.Second

const (
	previewChunks = 5
	previewRunes  = 120
	pollInterval  = time.Second
)

// Transport sends the vibe prompt.
type Transport interface {
	SendMessageStream(ctx context.Context, text string, showReasoning bool) iter.Seq2[stream.Fragment, error]
}

// Runner sends Prompt every Interval until stopped.
type Runner struct {
	Transport   Transport
	Prompt      string
	Interval    time.Duration
	ControlFile string
	Logger      *slog.Logger
}

// RunSummary describes one completed run.
type RunSummary struct {
	Chunks  int
	Preview string
}

// Run loops until ctx is done or a stop command appears in the control
// file. The control file is marked running on entry and stopped on exit.
func (r *Runner) Run(ctx context.Context) error {
	if r.ControlFile == "" {
		return errors.New("vibe: control file not set")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := r.Interval
	if interval < MinInterval {
		interval = MinInterval
	}

	runID := uuid.NewString()
	stoppedEarly := false
	if _, err := UpdateState(r.ControlFile, func(s *State) {
		// A stop sent while the process was launching is honored.
		if s.Status == StatusStarting && s.LastCommand == CommandStop {
			stoppedEarly = true
			s.Status = StatusStopped
			s.Timestamp = now()
			return
		}
		s.Status = StatusRunning
		s.LastCommand = CommandStart
		s.Timestamp = now()
		s.PID = os.Getpid()
		s.RunID = runID
		s.Runs = 0
		s.LastError = ""
	}); err != nil {
		return err
	}
	if stoppedEarly {
		logger.Info("stop requested before start", "run_id", runID)
		return nil
	}
	logger.Info("vibe mode started", "run_id", runID, "interval", interval, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.watchForStop(ctx, cancel, logger)

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	runs := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if st, err := ReadState(r.ControlFile); err == nil && st.StopRequested() {
			logger.Info("stop command detected")
			break
		}

		summary, err := r.RunOnce(ctx)
		runs++
		switch {
		case errors.Is(err, context.Canceled):
		case errors.Is(err, letta.ErrNoAgent):
			logger.Warn("no agent selected; skipping this cycle")
		case err != nil:
			logger.Error("error sending vibe prompt", "error", err)
		default:
			logger.Info("response received", "chunks", summary.Chunks, "preview", summary.Preview)
		}

		if _, werr := UpdateState(r.ControlFile, func(s *State) {
			s.Status = StatusRunning
			s.LastRun = now()
			s.PID = os.Getpid()
			s.Runs = runs
			s.LastError = ""
			if err != nil {
				s.LastError = err.Error()
			}
		}); werr != nil {
			logger.Warn("failed to update control file", "error", werr)
		}
	}

	_, err := UpdateState(r.ControlFile, func(s *State) {
		s.Status = StatusStopped
		s.LastCommand = CommandStop
		s.Timestamp = now()
	})
	logger.Info("vibe mode stopped", "run_id", runID, "runs", runs)
	return err
}

// RunOnce sends the prompt and drains the reply.
func (r *Runner) RunOnce(ctx context.Context) (RunSummary, error) {
	var (
		summary RunSummary
		preview []string
	)
	for ev, err := range stream.Demux(r.Transport.SendMessageStream(ctx, r.Prompt, false)) {
		if err != nil {
			return summary, err
		}
		summary.Chunks++
		if ev.Kind == stream.EventReply && len(preview) < previewChunks {
			preview = append(preview, ev.Text)
		}
	}
	text := strings.ReplaceAll(strings.Join(preview, ""), "\n", " ")
	summary.Preview = util.TruncateRunes(text, previewRunes)
	return summary, nil
}

// watchForStop cancels the run when the control file asks for a stop.
func (r *Runner) watchForStop(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) {
	check := func() bool {
		st, err := ReadState(r.ControlFile)
		if err == nil && st.StopRequested() {
			logger.Info("stop command detected")
			cancel()
			return true
		}
		return false
	}

	name, err := filepath.Abs(r.ControlFile)
	if err != nil {
		name = filepath.Clean(r.ControlFile)
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(filepath.Dir(name))
	}
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		logger.Debug("control file watch unavailable, polling", "error", err)
		r.pollForStop(ctx, check)
		return
	}
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Atomic writes arrive as a create or rename of the target.
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				if check() {
					return
				}
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Debug("control file watch error", "error", werr)
		}
	}
}

func (r *Runner) pollForStop(ctx context.Context, check func() bool) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if check() {
				return
			}
		}
	}
}

// String describes the runner for logs.
func (r *Runner) String() string {
	return fmt.Sprintf("vibe runner (interval %s, control %s)", r.Interval, r.ControlFile)
}
