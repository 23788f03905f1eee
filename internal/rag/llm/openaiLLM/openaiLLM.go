package openaiLLM

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("llm_openai")

type Client struct {
	api       openai.Client
	modelName string
}

func NewClient(apiKey string, modelName string, httpClient *http.Client, opts ...option.RequestOption) *Client {
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		options = append(options, option.WithHTTPClient(httpClient))
	}
	options = append(options, opts...)
	logger.Info("OpenAI chat client created", "model", modelName)
	return &Client{api: openai.NewClient(options...), modelName: modelName}
}

func (c *Client) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	log := logger.WithTrace(ctx, config.TRACE_ID_KEY).With("model", c.modelName, "task", prompt.Task)

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.modelName),
		Messages:    buildMessages(prompt),
		Temperature: openai.Float(float64(config.ModelTemperature)),
	})
	if err != nil {
		log.Error("OpenAI generation failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai returned an empty response")
	}
	return text, nil
}

func buildMessages(prompt llm.Prompt) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(prompt.History)+2)
	if prompt.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(prompt.SystemInstruction))
	}
	for _, turn := range prompt.History {
		messages = append(messages, openai.UserMessage(turn.Question), openai.AssistantMessage(turn.Answer))
	}
	return append(messages, openai.UserMessage(prompt.UserMessage()))
}
