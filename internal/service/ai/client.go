package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/uedevkit/assistant/backend/internal/config"
)

// Service implements the provider boundary over the Gemini API.
type Service struct {
	client *genai.Client
	cfg    config.AIConfig
}

// NewService creates the Gemini-backed provider. The credential must already
// be present; absence is checked at startup before anything interactive runs.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Service{client: client, cfg: cfg}, nil
}

// StreamConversation opens one streamed chat turn. The history excludes the
// new turn, which is appended as the final user content. When grounding is
// enabled the Google Search tool is attached so the provider may cite
// sources in its fragments.
func (s *Service) StreamConversation(ctx context.Context, history []Turn, message string, grounding bool) (Stream, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  RoleUser,
		Parts: []*genai.Part{{Text: message}},
	})

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}
	if s.cfg.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*s.cfg.Temperature))
	}
	if s.cfg.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*s.cfg.MaxTokens)
	}
	if grounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	return newStream(ctx, s.client, s.cfg.ChatModel, contents, cfg), nil
}

// GenerateText issues one blocking request and returns the final text.
func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(s.cfg.ThinkingBudget)),
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.cfg.CodegenModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return resp.Text(), nil
}
