// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// wiring.go - Builds a session with its client and observers.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/config"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/lawqa"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/storage"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/telemetry"
)

// sessionKit is a controller plus the observers subscribed to it.
type sessionKit struct {
	Client   *lawqa.Client
	Ctrl     *session.Controller
	Usage    *telemetry.UsageTracker
	Recorder *storage.Recorder

	store  *storage.TranscriptStore
	unsubs []func()
}

// newClient creates the answering service client for cfg.
func newClient(cfg *config.Config) *lawqa.Client {
	return lawqa.NewClientWithConfig(&lawqa.ClientConfig{
		BaseURL: cfg.Service.BaseURL,
		Timeout: cfg.ServiceTimeout(),
		OmitLaw: !cfg.SendLaw(),
	})
}

// newSessionKit wires a controller to the service and subscribes the usage
// tracker and, when enabled, the transcript recorder. Observers that cannot
// be opened are logged and skipped.
func newSessionKit(cfg *config.Config, answerer session.Answerer) *sessionKit {
	logger := slog.Default()
	ctrl := session.NewController(answerer, session.Config{
		Category: cfg.DefaultCategory(),
		Policy:   cfg.HistoryPolicy(),
		Locale:   cfg.UI.Locale,
		Logger:   logger,
	})
	kit := &sessionKit{Ctrl: ctrl}
	if c, ok := answerer.(*lawqa.Client); ok {
		kit.Client = c
	}

	var usageStore *telemetry.UsageStorage
	if dir, err := usageDir(); err == nil {
		if us, err := telemetry.NewUsageStorage(dir); err == nil {
			usageStore = us
		} else {
			logger.Warn("usage storage unavailable", "error", err)
		}
	}
	kit.Usage = telemetry.NewUsageTracker(ctrl.ID(), usageStore)
	kit.unsubs = append(kit.unsubs, ctrl.Subscribe(kit.Usage.Observe))

	if cfg.Storage.TranscriptEnabled {
		if store, err := openTranscripts(cfg); err != nil {
			logger.Warn("transcript archive unavailable", "error", err)
		} else {
			kit.store = store
			kit.Recorder = storage.NewRecorder(store, ctrl.ID(), logger)
			kit.unsubs = append(kit.unsubs, ctrl.Subscribe(kit.Recorder.Observe))
		}
	}
	return kit
}

// Close unsubscribes the observers, waits for queued transcript writes,
// saves the usage tally and closes the archive.
func (k *sessionKit) Close() error {
	for _, unsub := range k.unsubs {
		unsub()
	}
	if k.Recorder != nil {
		k.Recorder.Close()
	}
	var errs []error
	if err := k.Usage.Save(); err != nil {
		errs = append(errs, fmt.Errorf("save usage: %w", err))
	}
	if k.store != nil {
		if err := k.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// usageDir is where per-session usage files are kept.
func usageDir() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "usage"), nil
}

// openTranscripts opens the archive named by cfg, creating it if needed.
func openTranscripts(cfg *config.Config) (*storage.TranscriptStore, error) {
	path, err := cfg.TranscriptPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// openExistingTranscripts opens the archive for reading commands. It does
// not create a database that was never written.
func openExistingTranscripts(cfg *config.Config) (*storage.TranscriptStore, error) {
	path, err := cfg.TranscriptPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{Resource: "transcript archive (set storage.transcript_enabled = true)", ID: path}
	}
	return storage.Open(path)
}
