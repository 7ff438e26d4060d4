package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caption-assist/src/captionapi"
	"caption-assist/src/session"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Routes legacy single dash invocation to caption",
			in:   []string{"caption-cli", "-file", "dog.png", "-json"},
			out:  []string{"caption-cli", "caption", "--file", "dog.png", "--json"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"caption-cli", "caption", "-file=dog.png", "-detailed=true"},
			out:  []string{"caption-cli", "caption", "--file=dog.png", "--detailed=true"},
		},
		{
			name: "Leaves subcommands and short flags unchanged",
			in:   []string{"caption-cli", "console", "-v"},
			out:  []string{"caption-cli", "console", "-v"},
		},
		{
			name: "Stops at double dash",
			in:   []string{"caption-cli", "send", "--", "-file"},
			out:  []string{"caption-cli", "send", "--", "-file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, normalizeLegacyArgs(tt.in))
		})
	}
}

type backendHit struct {
	fileName string
	detailed string
}

// newBackend serves the caption endpoint and records each upload.
func newBackend(t *testing.T, status int, body string) (*httptest.Server, func() []backendHit) {
	t.Helper()
	var mu sync.Mutex
	var hits []backendHit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		hits = append(hits, backendHit{fileName: hdr.Filename, detailed: r.FormValue("detailed")})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []backendHit {
		mu.Lock()
		defer mu.Unlock()
		return append([]backendHit(nil), hits...)
	}
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CAPTION_ASSIST_ENV", "")
	t.Setenv("SPEECH_ENGINE", "none")
	t.Setenv("DETAILED", "false")
	t.Setenv("ENABLE_FILE_LOGGING", "false")
}

func writePNG(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

const dogResponse = `{"caption":"A dog running","alternative_captions":["A brown dog","A dog in a park"]}`

func TestCaptionCommandPlainOutput(t *testing.T) {
	isolateEnv(t)
	srv, hits := newBackend(t, http.StatusOK, dogResponse)
	path := writePNG(t, "dog.png")

	var out bytes.Buffer
	err := runWithArgs(context.Background(), []string{"caption-cli", "caption", "--file", path, "--backend", srv.URL}, nil, &out)
	require.NoError(t, err)

	assert.Equal(t, "A dog running\n  - A brown dog\n  - A dog in a park\n", out.String())
	require.Len(t, hits(), 1)
	assert.Equal(t, "dog.png", hits()[0].fileName)
	assert.Equal(t, "false", hits()[0].detailed)
}

func TestCaptionCommandJSONFromStdin(t *testing.T) {
	isolateEnv(t)
	srv, hits := newBackend(t, http.StatusOK, `{"caption":"A cat"}`)
	data, err := os.ReadFile(writePNG(t, "cat.png"))
	require.NoError(t, err)

	var out bytes.Buffer
	args := normalizeLegacyArgs([]string{"caption-cli", "-file", "-", "-json", "-detailed", "--backend", srv.URL})
	require.NoError(t, runWithArgs(context.Background(), args, bytes.NewReader(data), &out))

	var got session.Output
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "A cat", got.Caption)
	assert.Equal(t, []string{}, got.Alternatives)
	assert.Equal(t, "stdin", got.Source)
	assert.True(t, got.Detailed)
	require.Len(t, hits(), 1)
	assert.Equal(t, "true", hits()[0].detailed)
}

func TestCaptionCommandBackendFailure(t *testing.T) {
	isolateEnv(t)
	srv, _ := newBackend(t, http.StatusInternalServerError, `{"detail":"boom"}`)
	path := writePNG(t, "dog.png")

	var out bytes.Buffer
	err := runWithArgs(context.Background(), []string{"caption-cli", "caption", "--file", path, "--backend", srv.URL}, nil, &out)
	require.Error(t, err)

	var se *captionapi.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Empty(t, out.String())
}

func TestCaptionCommandRequiresFile(t *testing.T) {
	isolateEnv(t)
	err := runWithArgs(context.Background(), []string{"caption-cli", "caption"}, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestCaptionCommandRejectsNonImage(t *testing.T) {
	isolateEnv(t)
	srv, hits := newBackend(t, http.StatusOK, dogResponse)
	path := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not an image"), 0o600))

	err := runWithArgs(context.Background(), []string{"caption-cli", "caption", "--file", path, "--backend", srv.URL}, nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Empty(t, hits())
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

func TestSendWithoutResident(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SINGLEINSTANCE_PORT", strconv.Itoa(freePort(t)))
	path := writePNG(t, "dog.png")

	err := runWithArgs(context.Background(), []string{"caption-cli", "send", path}, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, errNoResident)
}

type fakeClient struct {
	delivered bool
	err       error
	path      string
}

func (f *fakeClient) Send(ctx context.Context, path string) (bool, error) {
	f.path = path
	return f.delivered, f.err
}

func TestRunSend(t *testing.T) {
	client := &fakeClient{delivered: true}
	var out bytes.Buffer
	require.NoError(t, runSend(context.Background(), client, "dog.png", &out))
	assert.True(t, filepath.IsAbs(client.path))
	assert.Contains(t, out.String(), "running instance")

	err := runSend(context.Background(), &fakeClient{}, "notes.txt", &out)
	assert.Error(t, err)

	err = runSend(context.Background(), &fakeClient{err: errors.New("reset")}, "dog.png", &out)
	assert.ErrorContains(t, err, "reset")
}
