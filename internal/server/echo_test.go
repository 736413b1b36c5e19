package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestEcho(t *testing.T) {
	tests := []struct {
		name          string
		body          io.Reader
		wantBody      string
		wantLength    string
		wantHasLength bool
	}{
		{
			name:          "known length",
			body:          strings.NewReader("some body"),
			wantBody:      "some body",
			wantLength:    "9",
			wantHasLength: true,
		},
		{
			name:          "empty body",
			body:          nil,
			wantBody:      "",
			wantLength:    "0",
			wantHasLength: true,
		},
		{
			name:          "unknown length",
			body:          io.MultiReader(strings.NewReader("streamed "), strings.NewReader("body")),
			wantBody:      "streamed body",
			wantHasLength: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/anything", tt.body)
			r.Header.Set("X-Custom", "value")
			r.Header.Add("Accept", "text/plain")
			r.Header.Add("Accept", "application/json")
			rec := httptest.NewRecorder()

			Echo(rec, r)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "value", rec.Header().Get("X-Custom"))
			assert.Equal(t, []string{"text/plain", "application/json"}, rec.Header().Values("Accept"))
			assert.Equal(t, "example.com", rec.Header().Get("Host"))

			_, hasLength := rec.Header()["Content-Length"]
			assert.Equal(t, tt.wantHasLength, hasLength)
			if tt.wantHasLength {
				assert.Equal(t, tt.wantLength, rec.Header().Get("Content-Length"))
			}
		})
	}
}

func TestEchoDoesNotAliasRequestHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Custom", "value")
	rec := httptest.NewRecorder()

	Echo(rec, r)
	rec.Header()["X-Custom"][0] = "changed"

	assert.Equal(t, "value", r.Header.Get("X-Custom"))
}

func TestEchoAbortsOnBodyReadFailure(t *testing.T) {
	body := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("producer failed")))
	r := httptest.NewRequest(http.MethodPost, "/", body)
	rec := httptest.NewRecorder()

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Echo(rec, r)
	})
	assert.Equal(t, "partial", rec.Body.String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    RequestKind
	}{
		{
			name: "plain request",
			want: PlainRequest,
		},
		{
			name:    "upgrade pair",
			headers: map[string]string{"Connection": "Upgrade", "Upgrade": "websocket"},
			want:    UpgradeRequest,
		},
		{
			name:    "case insensitive with token list",
			headers: map[string]string{"Connection": "keep-alive, UPGRADE", "Upgrade": "WebSocket"},
			want:    UpgradeRequest,
		},
		{
			name:    "upgrade to another protocol",
			headers: map[string]string{"Connection": "Upgrade", "Upgrade": "h2c"},
			want:    PlainRequest,
		},
		{
			name:    "upgrade header without connection",
			headers: map[string]string{"Upgrade": "websocket"},
			want:    PlainRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, Classify(r))
		})
	}
}
