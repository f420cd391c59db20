// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the query session controller.
package session

import (
	"golang.org/x/text/language"
)

// Messages are the fixed texts the reducer writes into LastAnswer.
type Messages struct {
	Generating string
	Retry      string
}

var (
	koreanMessages = Messages{
		Generating: "답변을 생성 중입니다...",
		Retry:      "오류 발생! 다시 시도해 주세요.",
	}
	englishMessages = Messages{
		Generating: "Generating an answer...",
		Retry:      "An error occurred! Please try again.",
	}
)

// Korean is listed first so it wins for unknown or empty locales.
var messageMatcher = language.NewMatcher([]language.Tag{
	language.Korean,
	language.English,
})

// MessagesFor returns the message set best matching a BCP 47 locale
// such as "ko", "ko-KR" or "en-US".
func MessagesFor(locale string) Messages {
	tag, err := language.Parse(locale)
	if err != nil {
		return koreanMessages
	}
	_, idx, conf := messageMatcher.Match(tag)
	if conf == language.No || idx != 1 {
		return koreanMessages
	}
	return englishMessages
}

// DefaultMessages returns the Korean message set.
func DefaultMessages() Messages {
	return koreanMessages
}
