package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// apiKeyHeader mirrors upstream.HeaderAPIKey; testutil must not import the
// packages it helps test.
const apiKeyHeader = "X-API-Key"

// NewVCRRecorder creates a recorder over testdata/fixtures/<cassetteName>.yaml.
// Set VCR_MODE=record to capture a fresh cassette from a live engine; the
// API key is redacted before the cassette is written.
func NewVCRRecorder(t *testing.T, cassetteName string) (*recorder.Recorder, func()) {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	cassettePath := filepath.Join("testdata", "fixtures", cassetteName)

	r, err := recorder.NewAsMode(cassettePath, mode, nil)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Upstream requests have no body, so method and URL identify them. The
	// key itself is redacted on disk; only its presence is checked.
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method &&
			r.URL.String() == i.URL &&
			r.Header.Get(apiKeyHeader) != ""
	})

	r.AddSaveFilter(func(i *cassette.Interaction) error {
		if i.Request.Headers.Get(apiKeyHeader) != "" {
			i.Request.Headers.Set(apiKeyHeader, "REDACTED")
		}
		return nil
	})

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// VCRHTTPClient returns an HTTP client configured to use the VCR recorder
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
