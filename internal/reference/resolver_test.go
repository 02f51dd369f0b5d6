package reference

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testResolver(client *http.Client) *Resolver {
	return NewResolver(client, zerolog.New(io.Discard))
}

func TestResolveInlineData(t *testing.T) {
	in := Input{Data: base64.StdEncoding.EncodeToString(pngBytes), MIME: "image/png"}

	out := testResolver(nil).Resolve(context.Background(), &in, nil)

	if len(out) != 1 {
		t.Fatalf("resolved %d entries, want 1", len(out))
	}
	if out[0].MIME != "image/png" || string(out[0].Bytes) != string(pngBytes) {
		t.Fatalf("unexpected resolution: %+v", out[0])
	}
}

func TestResolveDataURLString(t *testing.T) {
	in := Input{URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngBytes)}

	out := testResolver(nil).Resolve(context.Background(), &in, nil)

	if len(out) != 1 {
		t.Fatalf("resolved %d entries, want 1", len(out))
	}
	if out[0].MIME != "image/jpeg" {
		t.Fatalf("MIME = %q, want image/jpeg", out[0].MIME)
	}
}

func TestResolveRejectsNonBase64DataURL(t *testing.T) {
	in := Input{URL: "data:image/svg+xml;utf8,<svg/>"}

	out := testResolver(nil).Resolve(context.Background(), &in, nil)

	if len(out) != 0 {
		t.Fatalf("non-base64 data URL must be dropped, got %d entries", len(out))
	}
}

func TestResolveFetchesRemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	in := Input{URL: srv.URL + "/ref.webp"}
	out := testResolver(srv.Client()).Resolve(context.Background(), &in, nil)

	if len(out) != 1 {
		t.Fatalf("resolved %d entries, want 1", len(out))
	}
	if out[0].MIME != "image/webp" || len(out[0].Bytes) != len(pngBytes) {
		t.Fatalf("unexpected resolution: mime=%q bytes=%d", out[0].MIME, len(out[0].Bytes))
	}
}

func TestResolvePromotesFirstGalleryEntry(t *testing.T) {
	gallery := []Input{
		{Data: base64.StdEncoding.EncodeToString([]byte("first")), MIME: "image/png"},
		{Data: base64.StdEncoding.EncodeToString([]byte("second")), MIME: "image/png"},
	}

	out := testResolver(nil).Resolve(context.Background(), nil, gallery)

	if len(out) != 2 {
		t.Fatalf("resolved %d entries, want 2", len(out))
	}
	if string(out[0].Bytes) != "first" {
		t.Fatalf("first gallery entry should lead, got %q", out[0].Bytes)
	}
}

func TestResolveDropsFailingEntryAndContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	primary := Input{URL: srv.URL + "/missing.png"}
	gallery := []Input{{Data: base64.StdEncoding.EncodeToString(pngBytes), MIME: "image/png"}}

	out := testResolver(srv.Client()).Resolve(context.Background(), &primary, gallery)

	if len(out) != 1 {
		t.Fatalf("resolved %d entries, want 1 surviving entry", len(out))
	}
	if string(out[0].Bytes) != string(pngBytes) {
		t.Fatal("surviving entry should be the gallery image")
	}
}
