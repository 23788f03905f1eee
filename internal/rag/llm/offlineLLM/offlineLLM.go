// Package offlineLLM answers without a language model. It is registered for
// every model whose provider has no credential, so the service still runs
// end to end. Answers are the best matching context, quoted.
package offlineLLM

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocChat/internal/rag/llm"
)

const (
	maxQuoteLength = 600
	NoContextReply = "I don't know. No indexed document matched the question."
)

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt.Task == llm.TaskReformulate {
		return strings.TrimSpace(prompt.Question), nil
	}
	if len(prompt.Context) == 0 {
		return NoContextReply, nil
	}
	return "From the indexed documents: " + truncate(strings.TrimSpace(prompt.Context[0]), maxQuoteLength), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
