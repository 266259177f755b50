package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"google.golang.org/genai"
)

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, part := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: part})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

// settledStream builds a stream whose pump has already finished: the
// responses sit in the buffer, the terminal error (if any) is queued, and
// both channels are closed.
func settledStream(responses []*genai.GenerateContentResponse, pumpErr error) *genaiStream {
	respChan := make(chan *genai.GenerateContentResponse, len(responses)+1)
	errChan := make(chan error, 1)
	for _, resp := range responses {
		respChan <- resp
	}
	if pumpErr != nil {
		errChan <- pumpErr
	}
	close(errChan)
	close(respChan)

	ctx, cancel := context.WithCancel(context.Background())
	return &genaiStream{
		respChan: respChan,
		errChan:  errChan,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func recvText(t *testing.T, stream *genaiStream) string {
	t.Helper()
	frag, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv err: %v", err)
	}
	text := ""
	for _, part := range frag.Parts {
		text += part
	}
	return text
}

func TestRecvDrainsBufferedFragmentsAfterStreamEnds(t *testing.T) {
	stream := settledStream([]*genai.GenerateContentResponse{
		textResponse("Use the "),
		textResponse("Replicated specifier."),
	}, nil)

	// A fast producer fills the buffer and ends before the first Recv; every
	// delivered fragment must still come out before end-of-stream.
	got := recvText(t, stream) + recvText(t, stream)
	if got != "Use the Replicated specifier." {
		t.Fatalf("delivered fragments lost: got %q, want %q", got, "Use the Replicated specifier.")
	}

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestRecvSurfacesErrorAfterDeliveredFragments(t *testing.T) {
	cause := errors.New("connection reset")
	stream := settledStream([]*genai.GenerateContentResponse{
		textResponse("partial "),
		textResponse("answer"),
	}, cause)

	if got := recvText(t, stream) + recvText(t, stream); got != "partial answer" {
		t.Fatalf("got %q", got)
	}

	if _, err := stream.Recv(); !errors.Is(err, cause) {
		t.Fatalf("expected pump error, got %v", err)
	}
	// The stream is settled; further receives report end-of-stream.
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after error, got %v", err)
	}
}

func TestRecvEmptyStream(t *testing.T) {
	stream := settledStream(nil, nil)

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestRecvWaitsForSlowProducer(t *testing.T) {
	respChan := make(chan *genai.GenerateContentResponse)
	errChan := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	stream := &genaiStream{respChan: respChan, errChan: errChan, ctx: ctx, cancel: cancel}

	go func() {
		respChan <- textResponse("late fragment")
		close(errChan)
		close(respChan)
	}()

	if got := recvText(t, stream); got != "late fragment" {
		t.Fatalf("got %q", got)
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestCloseEndsStream(t *testing.T) {
	respChan := make(chan *genai.GenerateContentResponse, 1)
	errChan := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	stream := &genaiStream{respChan: respChan, errChan: errChan, ctx: ctx, cancel: cancel}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}

func TestNormalizeTextParts(t *testing.T) {
	frag := normalize(textResponse("first ", "", "second"))

	// Empty parts are dropped, order is preserved.
	if len(frag.Parts) != 2 || frag.Parts[0] != "first " || frag.Parts[1] != "second" {
		t.Fatalf("parts = %+v", frag.Parts)
	}
	if frag.Sources != nil {
		t.Fatalf("sources = %+v", frag.Sources)
	}
}

func TestNormalizeEmptyCandidates(t *testing.T) {
	frag := normalize(&genai.GenerateContentResponse{})

	if len(frag.Parts) != 0 || len(frag.Sources) != 0 {
		t.Fatalf("fragment = %+v", frag)
	}
}

func TestNormalizeGroundingChunks(t *testing.T) {
	resp := textResponse("cited answer")
	resp.Candidates[0].GroundingMetadata = &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{Title: "UE Docs", URI: "https://docs.unrealengine.com"}},
			{Web: nil},
			{Web: &genai.GroundingChunkWeb{URI: "https://forums.unrealengine.com"}},
		},
	}

	frag := normalize(resp)
	// The chunk without a web entry is skipped.
	if len(frag.Sources) != 2 {
		t.Fatalf("sources = %+v", frag.Sources)
	}
	if frag.Sources[0].Title != "UE Docs" || frag.Sources[0].URI != "https://docs.unrealengine.com" {
		t.Fatalf("sources[0] = %+v", frag.Sources[0])
	}
	if frag.Sources[1].Title != "" || frag.Sources[1].URI != "https://forums.unrealengine.com" {
		t.Fatalf("sources[1] = %+v", frag.Sources[1])
	}
}
