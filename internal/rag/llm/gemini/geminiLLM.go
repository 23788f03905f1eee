package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"google.golang.org/genai"
)

type Client struct {
	client    *genai.Client
	modelName string
}

var logger = logger_i.NewLogger("llm_gemini")

func NewClient(ctx context.Context, apiKey string, modelName string, httpClient *http.Client) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return nil, err
	}
	logger.Info("Gemini client created", "model", modelName)
	return &Client{client: c, modelName: modelName}, nil
}

func (c *Client) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("model", c.modelName, "task", prompt.Task)

	contentConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(config.ModelTemperature),
	}
	if prompt.SystemInstruction != "" {
		contentConfig.SystemInstruction = genai.NewContentFromText(prompt.SystemInstruction, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, buildContents(prompt), contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", err
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	log.Debug("Gemini generation done", "characters", len(text))
	return text, nil
}

// buildContents lays the history out as alternating user/model turns, then the current question.
func buildContents(prompt llm.Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, 2*len(prompt.History)+1)
	for _, turn := range prompt.History {
		contents = append(contents,
			genai.NewContentFromText(turn.Question, genai.RoleUser),
			genai.NewContentFromText(turn.Answer, genai.RoleModel),
		)
	}
	return append(contents, genai.NewContentFromText(prompt.UserMessage(), genai.RoleUser))
}
