// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for kiseha.
//
// Supports TOML and JSON-with-comments configuration formats, with defaults,
// .env and environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServiceConfig: Answering service URL, timeout and law scoping
//   - SessionConfig: Default category and history policy
//   - UIConfig: Locale, theme and panel toggles
//   - StorageConfig: Transcript archive settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (KISEHA_*), including those from ./.env
//   - ~/.kiseha/config.toml
//   - ~/.kiseha/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.Service.BaseURL
//	policy := cfg.HistoryPolicy()
package config
