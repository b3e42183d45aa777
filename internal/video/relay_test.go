package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliptag/backend/pkg/storage"
)

func init() { gin.SetMode(gin.TestMode) }

func relayRouter(src Source) *gin.Engine {
	r := gin.New()
	r.GET("/api/video", NewRelay(src, nil).Serve)
	return r
}

func get(r http.Handler, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/video", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var m map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestResolveSourceURL(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/file/d/1AbC_d-9/view?usp=sharing": "https://drive.google.com/uc?export=view&id=1AbC_d-9",
		"https://drive.google.com/open?id=XyZ123":                    "https://drive.google.com/uc?export=view&id=XyZ123",
		"  https://cdn.example.com/clip.mp4  ":                       "https://cdn.example.com/clip.mp4",
		"":                                                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveSourceURL(in), in)
	}
}

func TestRelayNotConfigured(t *testing.T) {
	w := get(relayRouter(nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, errorBody(t, w)["error"], "VIDEO_SOURCE_URL")
}

func TestRelayForwardsRangeAndMirrorsPartialContent(t *testing.T) {
	var gotRange, gotReferer string
	payload := strings.Repeat("v", 100)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "video/webm")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Range", "bytes 100-199/5000")
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = io.WriteString(w, payload)
	}))
	defer upstream.Close()

	src, err := NewSource(upstream.URL+"/clip.webm?token=secret", "https://app.example.com", nil, upstream.Client())
	require.NoError(t, err)
	w := get(relayRouter(src), "bytes=100-199")

	assert.Equal(t, "bytes=100-199", gotRange)
	assert.Equal(t, "https://app.example.com", gotReferer)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 100-199/5000", w.Header().Get("Content-Range"))
	assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
	assert.Equal(t, "100", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, payload, w.Body.String())
}

func TestRelayDefaultsContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p'})
	}))
	defer upstream.Close()

	src, err := NewSource(upstream.URL, "", nil, upstream.Client())
	require.NoError(t, err)
	w := get(relayRouter(src), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Range"))
}

func TestRelayRejectsHTML(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html>sign in</html>")
	}))
	defer upstream.Close()

	src, err := NewSource(upstream.URL, "", nil, upstream.Client())
	require.NoError(t, err)
	w := get(relayRouter(src), "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, errorBody(t, w)["error"], "HTML")
	assert.NotContains(t, w.Body.String(), "sign in")
}

func TestRelayPropagatesUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer upstream.Close()

	src, err := NewSource(upstream.URL, "", nil, upstream.Client())
	require.NoError(t, err)
	w := get(relayRouter(src), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, errorBody(t, w)["error"], "Video source returned 403")
}

func TestRelayNetworkFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := upstream.URL
	upstream.Close()

	src, err := NewSource(addr, "", nil, nil)
	require.NoError(t, err)
	w := get(relayRouter(src), "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := errorBody(t, w)
	assert.Equal(t, "Failed to load video", body["error"])
	assert.NotEmpty(t, body["detail"])
}

type fakeObjects struct {
	obj      *storage.Object
	err      error
	gotRange string
}

func (f *fakeObjects) GetObjectRange(_ context.Context, _, _, rangeHeader string) (*storage.Object, error) {
	f.gotRange = rangeHeader
	return f.obj, f.err
}

func TestRelayS3Source(t *testing.T) {
	objects := &fakeObjects{obj: &storage.Object{
		Body:          io.NopCloser(strings.NewReader("0123456789")),
		ContentType:   "video/mp4",
		ContentLength: 10,
		ContentRange:  "bytes 0-9/100",
		AcceptRanges:  "bytes",
	}}
	src, err := NewSource("s3://videos/clips/a.mp4", "", objects, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://videos/clips/a.mp4", src.Redacted())

	w := get(relayRouter(src), "bytes=0-9")
	assert.Equal(t, "bytes=0-9", objects.gotRange)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 0-9/100", w.Header().Get("Content-Range"))
	assert.Equal(t, "0123456789", w.Body.String())
}

func TestRelayS3NetworkError(t *testing.T) {
	src, err := NewSource("s3://videos/a.mp4", "", &fakeObjects{err: errors.New("dial tcp: i/o timeout")}, nil)
	require.NoError(t, err)
	w := get(relayRouter(src), "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, errorBody(t, w)["detail"], "i/o timeout")
}

func TestNewSource(t *testing.T) {
	src, err := NewSource("", "", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, src)

	_, err = NewSource("s3://bucket/key.mp4", "", nil, nil)
	assert.Error(t, err)

	_, err = NewSource("ftp://host/file", "", nil, nil)
	assert.Error(t, err)

	src, err = NewSource("https://drive.google.com/file/d/abc/view", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/uc", src.Redacted())
}
