package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "true", r.FormValue("preferCssPageSize"))
		require.Equal(t, "0", r.FormValue("marginTop"))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		require.Equal(t, "index.html", header.Filename)
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "<html>quote</html>", string(body))
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL+"/", WithTimeout(time.Second)).RenderHTML(context.Background(), "<html>quote</html>")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(out))
}

func TestRenderHTMLSurfacesRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<html></html>")
	require.ErrorIs(t, err, ErrRemote)
	require.ErrorContains(t, err, "status 503: chromium crashed")
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestPingHandler(t *testing.T) {
	cases := []struct {
		name   string
		client Pinger
		code   int
		status string
	}{
		{"up", stubPinger{}, http.StatusOK, "ok"},
		{"down", stubPinger{err: ErrRemote}, http.StatusServiceUnavailable, ""},
		{"not configured", nil, http.StatusOK, "disabled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.client, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
			require.Equal(t, tc.code, rec.Code)
			if tc.status != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, tc.status, body["status"])
			}
		})
	}
}

func TestPingAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	require.NoError(t, NewClient(srv.URL).Ping(context.Background()))
}
