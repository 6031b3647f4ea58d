package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/pkg/validation"
)

const maxAttempts = 3

// HTTPArtifactSource downloads artifacts from baseURL/<artifact file name>.
type HTTPArtifactSource struct {
	baseURL string
	client  *http.Client
	backoff func(attempt int) time.Duration
}

// HTTPOption customises an HTTPArtifactSource.
type HTTPOption func(*HTTPArtifactSource)

// WithBackoff overrides the delay before retry attempt+1.
func WithBackoff(f func(attempt int) time.Duration) HTTPOption {
	return func(s *HTTPArtifactSource) {
		s.backoff = f
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPArtifactSource) {
		s.client = c
	}
}

// NewHTTPArtifactSource validates baseURL and builds a source whose downloads
// are bounded by timeout.
func NewHTTPArtifactSource(baseURL string, timeout time.Duration, opts ...HTTPOption) (*HTTPArtifactSource, error) {
	if err := validation.NewURLValidator().ValidateBaseURL(baseURL); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	s := &HTTPArtifactSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HTTPArtifactSource) Name() string { return "http" }

// FetchArtifact retries network failures and 5xx responses; 4xx responses
// fail immediately.
func (s *HTTPArtifactSource) FetchArtifact(ctx context.Context, desc catalog.Descriptor) error {
	artifactURL := s.baseURL + "/" + url.PathEscape(artifactName(desc))
	log := logger.WithFields(logrus.Fields{"model_id": desc.ID, "url": artifactURL})

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		retry, err := s.fetchOnce(ctx, artifactURL, desc.ArtifactPath)
		if err == nil {
			log.Info("Model artifact downloaded")
			return nil
		}
		lastErr = err
		if !retry || attempt == maxAttempts-1 {
			break
		}

		log.WithError(err).WithField("attempt", attempt+1).Warn("Artifact download failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff(attempt)):
		}
	}
	return fmt.Errorf("failed to fetch artifact after %d attempts: %w", maxAttempts, lastErr)
}

// fetchOnce reports whether a failure is worth retrying.
func (s *HTTPArtifactSource) fetchOnce(ctx context.Context, artifactURL, dest string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream, */*")
	req.Header.Set("User-Agent", "Leaf-Health/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, fmt.Errorf("%w: client error: status code %d", ErrArtifactNotFound, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if err := writeArtifact(dest, copyTo(resp.Body)); err != nil {
		return true, err
	}
	return false, nil
}
