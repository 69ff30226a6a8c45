package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaClient talks to a local Ollama server's chat endpoint.
type OllamaClient struct {
	Client      *api.Client
	Model       string
	Temperature float32
}

// NewOllamaClient uses host when given, otherwise OLLAMA_HOST via envconfig.
func NewOllamaClient(host, model string, temperature float32) (*OllamaClient, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	return &OllamaClient{
		Client:      api.NewClient(hostURL, http.DefaultClient),
		Model:       model,
		Temperature: temperature,
	}, nil
}

func (o *OllamaClient) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: normalizeRole(m.Role), Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.Model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": o.Temperature,
		},
	}

	var responseBuilder strings.Builder
	err := o.Client.Chat(ctx, req, func(resp api.ChatResponse) error {
		_, err := responseBuilder.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if responseBuilder.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return responseBuilder.String(), nil
}
