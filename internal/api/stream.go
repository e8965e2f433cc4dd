package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/models"
)

// ErrorPrefix marks an error the server reports inside a 200 stream
const ErrorPrefix = "[error]"

const streamReadSize = 4096

// ChunkStream yields the text fragments of a streaming send. Each read from
// the network is one chunk. Only a framed body (JSON or NDJSON) is unwrapped;
// a text/plain body is passed through byte for byte.
type ChunkStream struct {
	body     io.ReadCloser
	endpoint string
	buf      []byte
	framed   bool

	// started is set once a fragment has been returned. The server only
	// reports in-band errors as the first fragment.
	started bool

	// peeked holds the first fragment read by OpenStream
	peeked    string
	hasPeeked bool

	// deferred is a read error that arrived together with data
	deferred error
	done     bool

	stopOpen  func() bool
	closeOnce sync.Once
}

func newChunkStream(ctx context.Context, body io.ReadCloser, endpoint string, framed bool) *ChunkStream {
	s := &ChunkStream{
		body:     body,
		endpoint: endpoint,
		buf:      make([]byte, streamReadSize),
		framed:   framed,
	}
	s.stopOpen = context.AfterFunc(ctx, func() { _ = s.Close() })
	return s
}

// Next returns the next fragment, or io.EOF once the server has finished.
// Cancelling ctx aborts a blocked read.
func (s *ChunkStream) Next(ctx context.Context) (string, error) {
	if s.hasPeeked {
		s.hasPeeked = false
		return s.peeked, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	text, err := s.read()
	if err != nil && ctx.Err() != nil && !errors.Is(err, io.EOF) {
		return "", ctx.Err()
	}
	return text, err
}

// Close aborts the stream
func (s *ChunkStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stopOpen != nil {
			s.stopOpen()
		}
		err = s.body.Close()
	})
	return err
}

func (s *ChunkStream) read() (string, error) {
	for {
		if s.deferred != nil {
			err := s.deferred
			s.deferred = nil
			return "", err
		}
		if s.done {
			return "", io.EOF
		}

		n, err := s.body.Read(s.buf)
		switch {
		case errors.Is(err, io.EOF):
			s.done = true
		case err != nil:
			s.deferred = apierrors.NewNetworkErrorWithEndpoint("read stream", s.endpoint, err)
		}

		if n == 0 {
			continue
		}
		text, decErr := s.decode(s.buf[:n])
		if decErr != nil {
			s.done = true
			s.deferred = nil
			return "", decErr
		}
		if text != "" {
			s.started = true
			return text, nil
		}
	}
}

// decode turns one network read into text. An error marker is honoured only
// before the first fragment, and frames are unwrapped only on a framed body.
func (s *ChunkStream) decode(data []byte) (string, error) {
	raw := string(data)
	trimmed := strings.TrimSpace(raw)

	if !s.started && strings.HasPrefix(trimmed, ErrorPrefix) {
		msg := strings.TrimSpace(strings.TrimPrefix(trimmed, ErrorPrefix))
		return "", apierrors.NewAPIError(0, s.endpoint, msg)
	}
	if s.framed && strings.HasPrefix(trimmed, "{") {
		if text, ok := decodeFrames(trimmed); ok {
			return text, nil
		}
	}
	return raw, nil
}

// isFramed reports whether a Content-Type carries JSON frames
func isFramed(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/json", "application/x-ndjson":
		return true
	}
	return false
}

// decodeFrames handles a read holding one or more newline separated JSON
// frames. It reports false unless every line is a frame.
func decodeFrames(s string) (string, bool) {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return "", false
		}
		frame := gjson.Parse(line)
		if !frame.IsObject() {
			return "", false
		}

		found := false
		for _, path := range framePaths {
			if v := frame.Get(path); v.Type == gjson.String {
				b.WriteString(v.String())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return b.String(), true
}

// OpenStream starts a streaming send. The first fragment is read before
// returning so that a server that fails immediately is reported here.
func (c *Client) OpenStream(ctx context.Context, req models.SendRequest) (models.ChunkSource, error) {
	query, payload, err := c.sendRequest(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, models.EndpointSend, query, payload)
	if err != nil {
		return nil, err
	}

	s := newChunkStream(ctx, resp.Body, models.EndpointSend, isFramed(resp.Header.Get("Content-Type")))
	first, err := s.read()
	switch {
	case errors.Is(err, io.EOF):
		return s, nil
	case err != nil:
		_ = s.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	s.peeked = first
	s.hasPeeked = true
	c.log.Debug("stream opened", "chat_id", req.ChatID, "first_chunk_bytes", len(first))
	return s, nil
}
