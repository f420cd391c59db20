// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local stand-in for the legal question-answering
// service.
package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// ============================================================================
// PROMPT
// ============================================================================

// systemPrompt mirrors the instructions the real service sends its model.
// It only feeds prompt token counting here.
const systemPrompt = `당신은 대한민국의 법률 전문 변호사입니다.
사용자는 특정 상황에 대한 법률적 질문을 하고 있으며, 아래의 관련 법률 조항을 기반으로 답변해야 합니다.

아래의 사항을 반드시 포함하여 작성해 주세요:
1. 핵심 법률 조항에 대한 요약 (조항 번호 포함)
2. 해당 상황에서 발생할 수 있는 법적 리스크 분석
3. 피해자 입장에서 취할 수 있는 대응 전략
4. 피고인 입장에서 고려해야 할 법적 방어 전략

모호하거나 과도한 일반론을 피하고, 조항을 정확히 요약하여 현실적인 조언을 제공하세요.`

// referenceArticles are the articles the stub "retrieves" per category.
var referenceArticles = map[model.LawCategory][]string{
	model.CriminalLaw:       {"형법 제21조(정당방위)", "형법 제257조(상해)"},
	model.CivilLaw:          {"민법 제390조(채무불이행과 손해배상)", "민법 제750조(불법행위의 내용)"},
	model.RoadTrafficAct:    {"도로교통법 제44조(술에 취한 상태에서의 운전 금지)", "도로교통법 제54조(사고발생 시의 조치)"},
	model.LaborStandardsAct: {"근로기준법 제23조(해고 등의 제한)", "근로기준법 제56조(연장·야간 및 휴일 근로)"},
	model.PoliceDutiesAct:   {"경찰관 직무집행법 제3조(불심검문)", "경찰관 직무집행법 제10조(경찰장비의 사용 등)"},
}

// generalArticles are cited when the request names no law.
var generalArticles = []string{"대한민국헌법 제12조(신체의 자유)", "민법 제2조(신의성실)"}

// ============================================================================
// COMPOSER
// ============================================================================

// composition is one composed answer with the texts tokens are counted on.
type composition struct {
	Answer string
	Prompt string
}

// compose builds a deterministic answer for question under law. law is nil
// for requests that omit the category.
func compose(question string, law *model.LawCategory) composition {
	articles := generalArticles
	scope := "관련 법령 전반"
	if law != nil {
		articles = referenceArticles[*law]
		scope = law.Label()
	}

	var ctx strings.Builder
	for _, a := range articles {
		ctx.WriteString(fmt.Sprintf("[%s] 해당 조항 본문\n", a))
	}
	userPrompt := fmt.Sprintf("질문: %s\n\n관련 법률 조항:\n%s", question, ctx.String())

	var b strings.Builder
	b.WriteString(fmt.Sprintf("## %s 관점의 검토\n\n", scope))
	b.WriteString(fmt.Sprintf("> %s\n\n", question))
	b.WriteString("### 1. 핵심 법률 조항 요약\n\n")
	for _, a := range articles {
		b.WriteString(fmt.Sprintf("- **%s**\n", a))
	}
	b.WriteString("\n### 2. 법적 리스크 분석\n\n")
	b.WriteString("사실관계에 따라 위 조항의 구성요건 해당 여부가 달라질 수 있습니다.\n\n")
	b.WriteString("### 3. 피해자 측 대응 전략\n\n")
	b.WriteString("증거를 확보하고 관할 기관에 신고 또는 소 제기를 검토하세요.\n\n")
	b.WriteString("### 4. 피고인 측 방어 전략\n\n")
	b.WriteString("위법성 조각 사유와 절차상 하자 여부를 우선 확인하세요.\n\n")
	b.WriteString("*이 답변은 로컬 스텁 서버가 생성한 예시이며 법률 자문이 아닙니다.*")

	return composition{
		Answer: b.String(),
		Prompt: systemPrompt + "\n\n" + userPrompt,
	}
}

// usageFor counts tokens the way the service reports them.
func usageFor(question string, c composition) model.TokenUsage {
	prompt := countTokens(c.Prompt)
	response := countTokens(c.Answer)
	return model.TokenUsage{
		QueryTokens:    countTokens(question),
		PromptTokens:   prompt,
		ResponseTokens: response,
		TotalTokens:    prompt + response,
	}
}

// tokenEncoding is the encoding the service's gpt-4-turbo counter uses.
const tokenEncoding = tiktoken.MODEL_CL100K_BASE

// encoder loads the BPE ranks once from the files bundled with the offline
// loader, so counting never touches the network.
var encoder = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	return tiktoken.GetEncoding(tokenEncoding)
})

// countTokens counts s in the service's encoding. If the encoding cannot be
// loaded it falls back to one token per rune.
func countTokens(s string) int {
	if s == "" {
		return 0
	}
	enc, err := encoder()
	if err != nil {
		return utf8.RuneCountInString(s)
	}
	return len(enc.Encode(s, nil, nil))
}
