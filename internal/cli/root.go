// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - Root command, persistent flags and shared setup.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/config"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/logging"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app carries the persistent flags and the loaded configuration to every
// command of one invocation.
type app struct {
	configPath string
	baseURL    string
	law        string
	verbose    bool

	cfg      *config.Config
	closeLog func() error
}

// Execute runs the kiseha command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call returns independent state.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "kiseha",
		Short: "Korean legal Q&A in the terminal",
		Long: `kiseha asks a legal answering service questions about Korean law.

Pick one of five law categories, ask in plain language and read the answer
with its elapsed time, token usage and the session's running history.
Without a subcommand kiseha opens the interactive TUI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.kiseha/config.toml)")
	flags.StringVar(&a.baseURL, "url", "", "answering service base URL")
	flags.StringVar(&a.law, "law", "", "initial law category (wire code, name or 1-5)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAskCmd(a),
		newReplCmd(a),
		newServeStubCmd(a),
		newStatusCmd(a),
		newHistoryCmd(a),
		newExportCmd(a),
		newConfigCmd(a),
		newLawsCmd(a),
		newUsageCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and starts logging.
// The TUI logs to a file so log lines never land on its screen.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := logging.Options{Verbose: a.verbose}
	if !cmd.HasParent() {
		path, err := config.LogPath()
		if err != nil {
			return err
		}
		opts.File = path
	}
	closeLog, err := logging.Setup(opts)
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	slog.Debug("configuration loaded", "path", a.activeConfigPath(), "url", cfg.Service.BaseURL)
	return nil
}

// loadConfig reads --config or the default location and applies --url
// and --law.
func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if a.baseURL != "" {
		cfg.Service.BaseURL = a.baseURL
	}
	if a.law != "" {
		cat, err := parseLawArg(a.law)
		if err != nil {
			return nil, err
		}
		cfg.Session.DefaultLaw = cat.Code()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// activeConfigPath is the file the configuration came from, "" for defaults.
func (a *app) activeConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ActivePath()
}

// parseLawArg accepts a wire code, an enum name or a 1-based index.
func parseLawArg(s string) (model.LawCategory, error) {
	s = strings.TrimSpace(s)
	cats := model.Categories()
	if len(s) == 1 && s[0] >= '1' && int(s[0]-'0') <= len(cats) {
		return cats[s[0]-'1'], nil
	}
	cat, err := model.ParseLawCategory(s)
	if err != nil {
		codes := make([]string, len(cats))
		for i, c := range cats {
			codes[i] = c.Code()
		}
		return 0, &ValidationError{
			Field:   "law",
			Value:   s,
			Reason:  "unknown law category",
			Example: strings.Join(codes, ", "),
		}
	}
	return cat, nil
}

// newVersionCmd prints build information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "kiseha %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
