package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cliptag/backend/internal/metrics"
	"github.com/cliptag/backend/pkg/response"
)

const defaultContentType = "video/mp4"

// UpstreamError describes why the upstream video could not be relayed.
type UpstreamError struct {
	Status  int
	Reason  string // metrics label
	Message string
	Detail  string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// Relay serves GET /api/video.
type Relay struct {
	source Source
	logger *zap.Logger
}

// NewRelay creates a relay. A nil source answers every request with 503.
func NewRelay(source Source, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{source: source, logger: logger}
}

// Serve handles GET /api/video.
func (r *Relay) Serve(c *gin.Context) {
	if r.source == nil {
		metrics.VideoRelayFailures.WithLabelValues("unconfigured").Inc()
		response.ServiceUnavailable(c, "VIDEO_SOURCE_URL is not set on the server")
		return
	}
	up, err := r.open(c.Request.Context(), c.GetHeader("Range"))
	if err != nil {
		metrics.VideoRelayFailures.WithLabelValues(err.Reason).Inc()
		if err.Detail != "" {
			response.ErrorWithDetail(c, err.Status, err.Message, err.Detail)
		} else {
			response.Error(c, err.Status, err.Message)
		}
		return
	}
	defer up.Body.Close()

	status := http.StatusOK
	extra := map[string]string{}
	if up.AcceptRanges != "" {
		extra["Accept-Ranges"] = up.AcceptRanges
	} else {
		extra["Accept-Ranges"] = "bytes"
	}
	if up.StatusCode == http.StatusPartialContent && up.ContentRange != "" {
		status = http.StatusPartialContent
		extra["Content-Range"] = up.ContentRange
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	body := &countingReader{r: up.Body}
	c.DataFromReader(status, up.ContentLength, contentType, body, extra)
	metrics.VideoRelayBytes.Add(float64(body.n))
	if body.err != nil && body.err != io.EOF {
		r.logger.Warn("video stream interrupted", zap.Error(body.err), zap.Int64("bytes", body.n))
	}
}

// open fetches the upstream and rejects anything that is not playable video.
func (r *Relay) open(ctx context.Context, rangeHeader string) (*Upstream, *UpstreamError) {
	src := r.source.Redacted()
	up, err := r.source.Fetch(ctx, rangeHeader)
	if err != nil {
		r.logger.Error("video source fetch failed", zap.Error(err), zap.String("source", src))
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Reason:  "network",
			Message: "Failed to load video",
			Detail:  err.Error(),
		}
	}
	if up.StatusCode < 200 || up.StatusCode > 299 {
		up.Body.Close()
		r.logger.Error("video source returned non-success status",
			zap.Int("status", up.StatusCode), zap.String("source", src))
		return nil, &UpstreamError{
			Status: up.StatusCode,
			Reason: "status",
			Message: fmt.Sprintf("Video source returned %d. If the host uses hot-link protection, allow this app's domain "+
				"as a referrer or set VIDEO_SOURCE_REFERER; otherwise check VIDEO_SOURCE_URL.", up.StatusCode),
		}
	}
	mediaType := strings.TrimSpace(strings.SplitN(up.ContentType, ";", 2)[0])
	if strings.HasPrefix(strings.ToLower(mediaType), "text/html") {
		up.Body.Close()
		r.logger.Error("video source returned HTML instead of video", zap.String("source", src))
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Reason:  "html",
			Message: "Video source returned HTML (wrong URL or login page). Use a direct video file URL in VIDEO_SOURCE_URL.",
		}
	}
	up.ContentType = mediaType
	return up, nil
}

type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil {
		c.err = err
	}
	return n, err
}
