package llm

import "context"

// Stream is a finite, non-restartable sequence of generated text fragments.
// Tokens is closed after the last fragment; Err reports how the stream
// ended and is valid once Tokens is closed. Fragments already consumed are
// not retracted when generation fails mid-stream.
type Stream struct {
	tokens chan string
	cancel context.CancelFunc
	err    error
}

// Tokens returns the fragment channel.
func (s *Stream) Tokens() <-chan string {
	return s.tokens
}

// Err returns the terminal error, or nil if the stream completed. Only
// valid after Tokens has been closed.
func (s *Stream) Err() error {
	return s.err
}

// Close stops token production. Safe to call more than once and after the
// stream has finished.
func (s *Stream) Close() {
	s.cancel()
}
