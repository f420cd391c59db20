// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the answering client,
// the session controller, and the presentation layers.
//
// # Key Types
//
//   - LawCategory: fixed set of law scopes a question can be narrowed to
//   - TokenUsage: the four usage counters reported per answer
//   - ChatTurn: one completed question/answer pair
//   - Answer: a successful response from the answering service
//
// # Usage
//
// Look up a category from its wire code:
//
//	cat, err := model.ParseLawCategory("Road_Traffic_Act")
//	fmt.Println(cat.Label()) // 도로교통법
package model
