package channel

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Signaler carries the SDP offer and answer between the two peers
type Signaler interface {
	// SendDescription delivers the encoded local description to the peer
	SendDescription(ctx context.Context, encoded string) error

	// ReceiveDescription waits for the peer's encoded description
	ReceiveDescription(ctx context.Context) (string, error)
}

// EncodeSessionDescription encodes a session description to base64
func EncodeSessionDescription(sd webrtc.SessionDescription) (string, error) {
	data, err := json.Marshal(sd)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session description: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSessionDescription decodes a base64 encoded session description
func DecodeSessionDescription(encoded string) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return sd, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(data, &sd); err != nil {
		return sd, fmt.Errorf("failed to unmarshal session description: %w", err)
	}

	return sd, nil
}

// LineSignaler exchanges descriptions as single base64 lines, typically
// copied by hand between two terminals
type LineSignaler struct {
	Out    io.Writer
	Prompt string

	in   *bufio.Reader
	once sync.Once
	src  io.Reader
}

// NewLineSignaler creates a signaler writing to out and reading from in
func NewLineSignaler(in io.Reader, out io.Writer) *LineSignaler {
	return &LineSignaler{Out: out, src: in}
}

// SendDescription prints the encoded description on its own line
func (s *LineSignaler) SendDescription(ctx context.Context, encoded string) error {
	_, err := fmt.Fprintln(s.Out, encoded)
	return err
}

// ReceiveDescription reads the next non-empty line
func (s *LineSignaler) ReceiveDescription(ctx context.Context) (string, error) {
	s.once.Do(func() { s.in = bufio.NewReader(s.src) })

	if s.Prompt != "" {
		fmt.Fprint(s.Out, s.Prompt)
	}

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		for {
			line, err := s.in.ReadString('\n')
			line = strings.TrimSpace(line)
			if line != "" || err != nil {
				done <- result{line, err}
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.line != "" {
			return r.line, nil
		}
		return "", r.err
	}
}

// MemorySignaler is one side of an in-process signaling pair
type MemorySignaler struct {
	tx chan<- string
	rx <-chan string
}

// NewMemorySignalers creates two connected signalers
func NewMemorySignalers() (*MemorySignaler, *MemorySignaler) {
	ab := make(chan string, 1)
	ba := make(chan string, 1)
	return &MemorySignaler{tx: ab, rx: ba}, &MemorySignaler{tx: ba, rx: ab}
}

// SendDescription hands the description to the peer
func (s *MemorySignaler) SendDescription(ctx context.Context, encoded string) error {
	select {
	case s.tx <- encoded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveDescription waits for the peer's description
func (s *MemorySignaler) ReceiveDescription(ctx context.Context) (string, error) {
	select {
	case encoded := <-s.rx:
		return encoded, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
