// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poiesic/autotag/entity"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxAttempts bounds how many times a malformed response is retried.
const maxAttempts = 3

// Recognizer implements entity.Recognizer using OpenAI-compatible chat APIs.
type Recognizer struct {
	client llms.Model
	logger *slog.Logger
}

var _ entity.Recognizer = (*Recognizer)(nil)

// mention is an internal type used for JSON unmarshaling.
type mention struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// response is the wrapper structure for the LLM's JSON response.
type response struct {
	Entities []mention `json:"entities"`
}

// NewRecognizer creates a recognizer using the provided configuration.
// The config is validated and normalized before use.
func NewRecognizer(config *entity.Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}
	return NewRecognizerWithClient(client, nil), nil
}

// NewRecognizerWithClient wraps an existing langchaingo model.
// A nil logger falls back to slog.Default().
func NewRecognizerWithClient(client llms.Model, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{
		client: client,
		logger: logger.With("component", "openai-recognizer"),
	}
}

// Recognize asks the model for the entities in text.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]entity.Mention, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(cleanInput(text)),
			},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			r.logger.Error("failed to generate content", "attempt", attempt, "err", err)
			return nil, err
		}
		if len(resp.Choices) < 1 {
			r.logger.Debug("no choices returned from model")
			return []entity.Mention{}, nil
		}

		mentions, err := parseResponse(resp.Choices[0].Content)
		if err != nil {
			lastErr = err
			r.logger.Warn("error parsing recognizer response",
				"attempt", attempt,
				"response", resp.Choices[0].Content,
				"err", err)
			continue
		}

		r.logger.Debug("recognized entities", "count", len(mentions))
		return mentions, nil
	}

	r.logger.Error("failed to parse recognizer response after retries", "err", lastErr)
	return nil, fmt.Errorf("openai recognizer: %w", lastErr)
}

// parseResponse decodes a model reply into mentions, repairing it first.
func parseResponse(raw string) ([]entity.Mention, error) {
	var parsed response
	if err := json.Unmarshal([]byte(repairJSON(stripCodeFence(raw))), &parsed); err != nil {
		return nil, err
	}

	mentions := make([]entity.Mention, 0, len(parsed.Entities))
	for _, m := range parsed.Entities {
		if m.Text == "" {
			continue
		}
		mentions = append(mentions, entity.Mention{Text: m.Text, Label: m.Label})
	}
	return mentions, nil
}
