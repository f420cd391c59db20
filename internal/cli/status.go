// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Configuration and service reachability at a glance.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/storage"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/telemetry"
)

// reachTimeout bounds the reachability probe.
const reachTimeout = 3 * time.Second

// statusReport is the --json payload of status.
type statusReport struct {
	ConfigPath   string `json:"config_path"`
	ServiceURL   string `json:"service_url"`
	Reachable    bool   `json:"reachable"`
	ReachError   string `json:"reach_error,omitempty"`
	DefaultLaw   string `json:"default_law"`
	Policy       string `json:"history_policy"`
	Transcripts  bool   `json:"transcripts_enabled"`
	ArchivedRows int    `json:"archived_turns"`
	TodayAnswers int    `json:"today_answers"`
	TodayTokens  int    `json:"today_tokens"`
}

func newStatusCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and service reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := a.collectStatus(cmd.Context())
			if jsonOut {
				return NewJSONResponse("status", report).Print(cmd.OutOrStdout())
			}
			printStatus(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

// collectStatus gathers the report. Probes that fail are reported, not
// returned.
func (a *app) collectStatus(ctx context.Context) statusReport {
	cfg := a.cfg
	report := statusReport{
		ConfigPath:  a.activeConfigPath(),
		ServiceURL:  cfg.Service.BaseURL,
		DefaultLaw:  cfg.DefaultCategory().Code(),
		Policy:      cfg.HistoryPolicy().String(),
		Transcripts: cfg.Storage.TranscriptEnabled,
	}

	probeCtx, cancel := context.WithTimeout(ctx, reachTimeout)
	defer cancel()
	if err := newClient(cfg).CheckReachable(probeCtx); err != nil {
		report.ReachError = err.Error()
	} else {
		report.Reachable = true
	}

	if path, err := cfg.TranscriptPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if store, err := storage.Open(path); err == nil {
				report.ArchivedRows, _ = store.Count(ctx)
				store.Close()
			}
		}
	}

	if dir, err := usageDir(); err == nil {
		if us, err := telemetry.NewUsageStorage(dir); err == nil {
			if trends, err := telemetry.Trends(us, 1); err == nil {
				report.TodayAnswers = trends.Answers
				report.TodayTokens = trends.Tokens.TotalTokens
			}
		}
	}
	return report
}

func printStatus(cmd *cobra.Command, r statusReport) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, TitleStyle.Render("kiseha status"))

	configPath := r.ConfigPath
	if configPath == "" {
		configPath = "(defaults)"
	}
	fmt.Fprintln(w, RenderLabel("Config")+ValueStyle.Render(configPath))

	service := r.ServiceURL + "  " + RenderStatus("ok")
	if !r.Reachable {
		service = r.ServiceURL + "  " + RenderStatus("error") + " " + DimStyle.Render(r.ReachError)
	}
	fmt.Fprintln(w, RenderLabel("Service")+service)
	fmt.Fprintln(w, RenderLabel("Default law")+ValueStyle.Render(r.DefaultLaw))
	fmt.Fprintln(w, RenderLabel("History policy")+ValueStyle.Render(r.Policy))

	archive := "disabled"
	if r.Transcripts {
		archive = fmt.Sprintf("enabled, %d turns", r.ArchivedRows)
	}
	fmt.Fprintln(w, RenderLabel("Transcripts")+ValueStyle.Render(archive))
	fmt.Fprintln(w, RenderLabel("Last 24h")+ValueStyle.Render(fmt.Sprintf("%d answers, %d tokens", r.TodayAnswers, r.TodayTokens)))
}
