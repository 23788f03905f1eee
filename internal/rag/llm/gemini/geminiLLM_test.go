package gemini

import (
	"testing"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"google.golang.org/genai"
)

func TestBuildContents(t *testing.T) {
	prompt := llm.Prompt{
		Task: llm.TaskAnswer,
		History: []commonModels.ConversationTurn{
			{Question: "who wrote it?", Answer: "Ada."},
		},
		Context:  []string{"Ada wrote the report in 2021."},
		Question: "when?",
	}

	contents := buildContents(prompt)
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser || contents[1].Role != genai.RoleModel || contents[2].Role != genai.RoleUser {
		t.Errorf("unexpected roles %s %s %s", contents[0].Role, contents[1].Role, contents[2].Role)
	}
	if contents[1].Parts[0].Text != "Ada." {
		t.Errorf("history answer not kept: %q", contents[1].Parts[0].Text)
	}
	if contents[2].Parts[0].Text != prompt.UserMessage() {
		t.Errorf("last content should be the user message")
	}
}
