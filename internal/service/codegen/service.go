// Package codegen issues single-shot code synthesis requests against the
// provider, one request/response cycle per submission.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/uedevkit/assistant/backend/internal/model/codegen"
	"github.com/uedevkit/assistant/backend/internal/service/ai"
)

// ErrGenerationInFlight rejects a submission while another is running.
var ErrGenerationInFlight = errors.New("generation already in flight")

const (
	// generationErrorText replaces the output when the provider call fails.
	generationErrorText = "Error generating code. Please check your API key and try again."

	// emptyOutputText stands in when the provider returns nothing.
	emptyOutputText = "Failed to generate code."
)

// Generator is the slice of the provider boundary code generation needs.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Service holds the latest generation output.
type Service struct {
	gen Generator

	mu     sync.Mutex
	busy   bool
	output string
}

// NewService wraps the provider boundary.
func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

// Generate clears any previous output and issues one blocking request with
// the parameters interpolated into the fixed prompt template. On success the
// returned text is stored verbatim; on failure the output is replaced with a
// fixed human-readable error string, with no retry and no partial output.
func (s *Service) Generate(ctx context.Context, params codegen.Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return "", ErrGenerationInFlight
	}
	s.busy = true
	s.output = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	text, err := s.gen.GenerateText(ctx, ai.ClassPrompt(params))
	if err != nil {
		log.Printf("[codegen] generation failed for class=%s: %v", params.ClassName, err)
		s.setOutput(generationErrorText)
		return generationErrorText, nil
	}
	if text == "" {
		text = emptyOutputText
	}

	s.setOutput(text)
	return text, nil
}

// Output returns the most recent generation result.
func (s *Service) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

func (s *Service) setOutput(text string) {
	s.mu.Lock()
	s.output = text
	s.mu.Unlock()
}
