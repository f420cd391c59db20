// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lawqa provides the HTTP client for the legal question-answering service.
//
// The service exposes a single endpoint, POST /query, which takes a question
// and a law category code and returns the generated answer, the elapsed time
// as display text, four token counters, and the service's recent chat history.
//
// # Key Types
//
//   - Client: HTTP client for the answering service
//   - QueryRequest: request body for /query
//   - QueryResponse: decoded and validated /query response
//   - ClientError: categorized client failure
//
// # Usage
//
//	client := lawqa.NewClientWithConfig(&lawqa.ClientConfig{BaseURL: "http://127.0.0.1:8000"})
//	ans, err := client.Ask(ctx, "정당방위의 요건은?", model.CriminalLaw)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(ans.Answer, ans.Tokens.TotalTokens)
package lawqa
