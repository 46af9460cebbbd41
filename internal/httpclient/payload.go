package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/loadline/barrage/internal/config"
)

// Payload is the request body shared by every request of a run. A body file
// is read once when the run is set up; each request replays the cached bytes.
type Payload struct {
	data   []byte
	origin string
}

// LoadPayload resolves the configured body. Body and BodyFile are exclusive;
// neither yields an empty payload.
func LoadPayload(cfg *config.Config) (*Payload, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	path := strings.TrimSpace(cfg.BodyFile)
	switch {
	case cfg.Body != "" && path != "":
		return nil, errors.New("body and body file cannot both be provided")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("body file: %w", err)
		}
		return &Payload{data: data, origin: path}, nil
	case cfg.Body != "":
		return &Payload{data: []byte(cfg.Body), origin: "inline"}, nil
	}
	return &Payload{}, nil
}

// Len is the body size in bytes.
func (p *Payload) Len() int64 { return int64(len(p.data)) }

// Origin is the body file path, "inline", or empty for no body.
func (p *Payload) Origin() string { return p.origin }

// Reader returns a fresh reader over the body. Readers share the backing
// array and never modify it.
func (p *Payload) Reader() io.ReadCloser {
	if len(p.data) == 0 {
		return http.NoBody
	}
	return io.NopCloser(bytes.NewReader(p.data))
}

// attach sets req's body, length and replay function.
func (p *Payload) attach(req *http.Request) {
	req.ContentLength = p.Len()
	req.Body = p.Reader()
	req.GetBody = func() (io.ReadCloser, error) { return p.Reader(), nil }
}
