// Package video relays one configured upstream video to browser clients.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"

	"github.com/cliptag/backend/pkg/storage"
)

// Upstream is an opened upstream response. Body must be closed by the caller.
type Upstream struct {
	StatusCode    int
	ContentType   string
	ContentLength int64 // -1 when unknown
	AcceptRanges  string
	ContentRange  string
	Body          io.ReadCloser
}

// Source fetches the configured video, forwarding an optional Range header.
type Source interface {
	Fetch(ctx context.Context, rangeHeader string) (*Upstream, error)
	// Redacted names the source for logs, without query string.
	Redacted() string
}

var (
	driveFile = regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)
	driveOpen = regexp.MustCompile(`drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`)
)

// ResolveSourceURL rewrites Google Drive share links to their direct-content URL.
// Other URLs are returned unchanged.
func ResolveSourceURL(raw string) string {
	u := strings.TrimSpace(raw)
	for _, re := range []*regexp.Regexp{driveFile, driveOpen} {
		if m := re.FindStringSubmatch(u); m != nil {
			return "https://drive.google.com/uc?export=view&id=" + m[1]
		}
	}
	return u
}

// NewSource builds the Source for a configured URL. An empty URL yields a nil Source.
func NewSource(rawURL, referer string, objects storage.ObjectReader, client *http.Client) (Source, error) {
	resolved := ResolveSourceURL(rawURL)
	if resolved == "" {
		return nil, nil
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return nil, fmt.Errorf("parse video source: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		if client == nil {
			client = http.DefaultClient
		}
		return &HTTPSource{url: resolved, referer: referer, client: client}, nil
	case "s3":
		if objects == nil {
			return nil, errors.New("s3 video source requires an S3 client")
		}
		return &S3Source{bucket: u.Host, key: strings.TrimPrefix(u.Path, "/"), objects: objects}, nil
	default:
		return nil, fmt.Errorf("unsupported video source scheme %q", u.Scheme)
	}
}

// HTTPSource fetches the video over HTTP(S), following redirects.
type HTTPSource struct {
	url     string
	referer string
	client  *http.Client
}

// Fetch issues one GET to the upstream.
func (s *HTTPSource) Fetch(ctx context.Context, rangeHeader string) (*Upstream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	if s.referer != "" {
		req.Header.Set("Referer", s.referer)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	return &Upstream{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		AcceptRanges:  resp.Header.Get("Accept-Ranges"),
		ContentRange:  resp.Header.Get("Content-Range"),
		Body:          resp.Body,
	}, nil
}

// Redacted returns the URL without its query string.
func (s *HTTPSource) Redacted() string {
	if i := strings.IndexByte(s.url, '?'); i >= 0 {
		return s.url[:i]
	}
	return s.url
}

// S3Source reads the video from an S3 object.
type S3Source struct {
	bucket  string
	key     string
	objects storage.ObjectReader
}

// Fetch gets the object, passing the Range through to S3.
func (s *S3Source) Fetch(ctx context.Context, rangeHeader string) (*Upstream, error) {
	obj, err := s.objects.GetObjectRange(ctx, s.bucket, s.key, rangeHeader)
	if err != nil {
		var re *awshttp.ResponseError
		if errors.As(err, &re) && re.HTTPStatusCode() != 0 {
			return &Upstream{StatusCode: re.HTTPStatusCode(), ContentLength: -1, Body: http.NoBody}, nil
		}
		return nil, err
	}
	status := http.StatusOK
	if obj.ContentRange != "" {
		status = http.StatusPartialContent
	}
	return &Upstream{
		StatusCode:    status,
		ContentType:   obj.ContentType,
		ContentLength: obj.ContentLength,
		AcceptRanges:  obj.AcceptRanges,
		ContentRange:  obj.ContentRange,
		Body:          obj.Body,
	}, nil
}

// Redacted returns the s3:// URL of the object.
func (s *S3Source) Redacted() string { return "s3://" + s.bucket + "/" + s.key }
