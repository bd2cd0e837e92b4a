package llm

import "context"

// ScriptedClient is a Client for tests: responses are played back in
// order, one per Stream call, split into fixed-size chunks to exercise
// accumulation. After the script is exhausted the last response repeats.
type ScriptedClient struct {
	Responses []string
	ChunkSize int
	NoModel   bool // every Stream call fails with ErrNoModel

	Requests []Request // records what the engine sent
	calls    int
}

// Stream implements Client.
func (s *ScriptedClient) Stream(_ context.Context, req Request) (<-chan Chunk, error) {
	if s.NoModel {
		return nil, ErrNoModel
	}
	s.Requests = append(s.Requests, req)

	var text string
	if len(s.Responses) > 0 {
		idx := s.calls
		if idx >= len(s.Responses) {
			idx = len(s.Responses) - 1
		}
		text = s.Responses[idx]
	}
	s.calls++

	size := s.ChunkSize
	if size <= 0 {
		size = 7
	}

	out := make(chan Chunk, len(text)/size+2)
	for len(text) > 0 {
		n := size
		if n > len(text) {
			n = len(text)
		}
		out <- Chunk{Text: text[:n]}
		text = text[n:]
	}
	close(out)
	return out, nil
}
