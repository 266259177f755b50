package ai

import (
	"context"
	"io"

	"google.golang.org/genai"
)

// genaiStream bridges the SDK's iterator into the Stream contract. A
// goroutine pumps responses into a channel so Recv keeps the caller's
// strictly sequential, in-order consumption model.
type genaiStream struct {
	respChan <-chan *genai.GenerateContentResponse
	errChan  <-chan error
	ctx      context.Context
	cancel   context.CancelFunc
	done     bool
}

func newStream(ctx context.Context, client *genai.Client, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) *genaiStream {
	respChan := make(chan *genai.GenerateContentResponse, 8)
	errChan := make(chan error, 1)
	streamCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(respChan)
		defer close(errChan)

		for resp, err := range client.Models.GenerateContentStream(streamCtx, model, contents, cfg) {
			if err != nil {
				select {
				case errChan <- err:
				case <-streamCtx.Done():
				}
				return
			}
			select {
			case respChan <- resp:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return &genaiStream{
		respChan: respChan,
		errChan:  errChan,
		ctx:      streamCtx,
		cancel:   cancel,
	}
}

// Recv returns the next normalized fragment, or io.EOF when the sequence is
// exhausted. Errors raised mid-sequence by the provider surface here, but
// only after every fragment delivered before the failure has been consumed:
// buffered responses take strict priority over the termination signals, so a
// producer outrunning the consumer never gets its tail discarded.
func (s *genaiStream) Recv() (*Fragment, error) {
	if s.done {
		return nil, io.EOF
	}

	select {
	case resp, ok := <-s.respChan:
		if !ok {
			return s.finish()
		}
		return normalize(resp), nil
	default:
	}

	select {
	case resp, ok := <-s.respChan:
		if !ok {
			return s.finish()
		}
		return normalize(resp), nil
	case <-s.ctx.Done():
		s.done = true
		return nil, s.ctx.Err()
	}
}

// finish settles the stream once respChan is closed and drained: a pending
// provider error surfaces now, otherwise the sequence ended cleanly.
func (s *genaiStream) finish() (*Fragment, error) {
	s.done = true
	if err, ok := <-s.errChan; ok && err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close cancels the underlying call. Partial results already delivered are
// unaffected; the provider-side stream is abandoned.
func (s *genaiStream) Close() error {
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// normalize converts one raw response into the strict Fragment schema.
// Grounding chunks without a web entry are skipped rather than propagated.
func normalize(resp *genai.GenerateContentResponse) *Fragment {
	frag := &Fragment{}
	if len(resp.Candidates) == 0 {
		return frag
	}
	candidate := resp.Candidates[0]

	if gm := candidate.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			frag.Sources = append(frag.Sources, Source{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				frag.Parts = append(frag.Parts, part.Text)
			}
		}
	}
	return frag
}
