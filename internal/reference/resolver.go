// Package reference normalizes the reference images attached to a generation
// request into the canonical in-memory form consumed by the dispatcher.
package reference

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Input is a single reference entry as submitted by the client: inline
// base64 data plus MIME type, a remote URL, or a bare string that may itself
// be a data URL.
type Input struct {
	Data string `json:"data,omitempty"`
	MIME string `json:"mimeType,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Resolved is the canonical in-memory form of a reference image.
type Resolved struct {
	Bytes []byte
	MIME  string
}

// Resolver turns reference inputs into resolved images. Remote URLs are
// fetched at resolve time, which the dispatcher invokes only for the entries
// a call actually needs.
type Resolver struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewResolver builds a Resolver. A nil client gets a bounded default.
func NewResolver(httpClient *http.Client, logger zerolog.Logger) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Resolver{httpClient: httpClient, logger: logger}
}

const maxReferenceBytes = 20 * 1024 * 1024

// Resolve normalizes the primary reference and gallery into an ordered list.
// When the primary is absent and the gallery is not, the first gallery entry
// is promoted to primary. Failures on individual entries are logged and the
// entry dropped; resolution continues for the rest.
func (r *Resolver) Resolve(ctx context.Context, primary *Input, gallery []Input) []Resolved {
	entries := make([]Input, 0, len(gallery)+1)
	if primary != nil {
		entries = append(entries, *primary)
		entries = append(entries, gallery...)
	} else if len(gallery) > 0 {
		// Promote the first gallery entry to primary.
		entries = append(entries, gallery...)
	}

	out := make([]Resolved, 0, len(entries))
	for i, entry := range entries {
		resolved, err := r.resolveOne(ctx, entry)
		if err != nil {
			r.logger.Warn().Err(err).Int("index", i).Msg("reference: dropping unresolvable entry")
			continue
		}
		out = append(out, resolved)
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, in Input) (Resolved, error) {
	if data := strings.TrimSpace(in.Data); data != "" {
		if strings.HasPrefix(data, "data:") {
			return parseDataURL(data)
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return Resolved{}, fmt.Errorf("decode inline data: %w", err)
		}
		mime := in.MIME
		if mime == "" {
			mime = "image/png"
		}
		return Resolved{Bytes: raw, MIME: mime}, nil
	}

	if u := strings.TrimSpace(in.URL); u != "" {
		if strings.HasPrefix(u, "data:") {
			return parseDataURL(u)
		}
		return r.fetch(ctx, u)
	}

	return Resolved{}, fmt.Errorf("empty reference entry")
}

// parseDataURL splits a data URL into MIME type and decoded payload. Only
// base64 payloads are accepted.
func parseDataURL(raw string) (Resolved, error) {
	rest := strings.TrimPrefix(raw, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return Resolved{}, fmt.Errorf("malformed data url")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return Resolved{}, fmt.Errorf("unsupported data url encoding %q", meta)
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "image/png"
	}
	raw64, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Resolved{}, fmt.Errorf("decode data url payload: %w", err)
	}
	return Resolved{Bytes: raw64, MIME: mime}, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (Resolved, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Resolved{}, fmt.Errorf("create fetch request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Resolved{}, fmt.Errorf("fetch reference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Resolved{}, fmt.Errorf("fetch reference status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes+1))
	if err != nil {
		return Resolved{}, fmt.Errorf("read reference body: %w", err)
	}
	if len(data) > maxReferenceBytes {
		return Resolved{}, fmt.Errorf("reference exceeds %d bytes", maxReferenceBytes)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return Resolved{Bytes: data, MIME: mime}, nil
}
