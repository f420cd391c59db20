// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the kiseha command-line interface.
//
// The root command opens the TUI. Subcommands:
//
//	kiseha ask "question"        Ask one question and print the answer
//	kiseha repl                  Line-mode session with input history
//	kiseha serve-stub            Run the local stand-in answering service
//	kiseha status                Check the service, config and archives
//	kiseha history [show|search|delete|prune]
//	kiseha export [session]      Write an archived session to a file
//	kiseha config [show|path|init|get|set|keys]
//	kiseha laws                  List the law categories
//	kiseha usage                 Token usage over recent sessions
//	kiseha version               Show version information
//
// Persistent flags --config, --url and --law override the configuration for
// one invocation; -v enables debug logging.
package cli
