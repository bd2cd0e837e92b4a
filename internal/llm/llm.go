// Package llm is the engine's boundary to language-model providers. The
// engine never talks to a provider directly: it sends a two-part chat
// request through Client and consumes an ordered stream of text chunks.
package llm

import (
	"context"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// Request is a two-part chat request: system instructions plus user text,
// with an optional model family hint from the persona document.
type Request struct {
	System    string
	User      string
	ModelHint string
}

// Chunk is one streamed fragment of a model response. Err is set on the
// final chunk when the stream terminated abnormally.
type Chunk struct {
	Text string
	Err  error
}

// Client streams chat completions. Implementations must deliver chunks in
// order and close the channel when the response is complete. A provider
// that cannot supply a model at all returns ErrNoModel from Stream without
// opening a stream.
type Client interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// ErrNoModel is the fixed, non-retryable failure for a missing provider.
var ErrNoModel = schema.NewError(schema.ErrCodeNoModel, "no model available")

// Collect drains a chunk stream, forwarding each fragment to onChunk (may
// be nil) while accumulating the full text. Returns the accumulated text
// and the stream error, if any.
func Collect(ctx context.Context, stream <-chan Chunk, onChunk func(string)) (string, error) {
	var full []byte
	for {
		select {
		case <-ctx.Done():
			return string(full), schema.NewError(schema.ErrCodeCancelled, "response stream cancelled").WithCause(ctx.Err())
		case chunk, ok := <-stream:
			if !ok {
				return string(full), nil
			}
			if chunk.Err != nil {
				return string(full), chunk.Err
			}
			if chunk.Text != "" {
				full = append(full, chunk.Text...)
				if onChunk != nil {
					onChunk(chunk.Text)
				}
			}
		}
	}
}
