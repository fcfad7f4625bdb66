package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/models"
)

// FeedResponse is the payload served by an odds feed. Flat records are used
// as-is; raw market runners go through the side resolver.
type FeedResponse struct {
	Records []OddsRecord   `json:"records"`
	Markets []MarketRecord `json:"markets"`
}

// FeedSource fetches candidates from an HTTP JSON odds feed
type FeedSource struct {
	httpClient *RateLimitedHTTPClient
	url        string
	apiKey     string
	resolver   *SideResolver
	logger     logrus.FieldLogger
}

// NewFeedSource creates a feed-backed candidate source
func NewFeedSource(httpClient *RateLimitedHTTPClient, url, apiKey string, log logrus.FieldLogger) *FeedSource {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FeedSource{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		resolver:   NewSideResolver(log),
		logger:     log,
	}
}

// Name returns the name of the source
func (f *FeedSource) Name() string {
	return "feed"
}

// FetchCandidates retrieves and resolves the quoted propositions
func (f *FeedSource) FetchCandidates(ctx context.Context) ([]models.Candidate, error) {
	headers := map[string]string{"Accept": "application/json"}
	if f.apiKey != "" {
		headers["X-API-Key"] = f.apiKey
	}

	resp, err := f.httpClient.Get(ctx, f.url, headers)
	if err != nil {
		return nil, NewDataSourceError(f.Name(), ErrCodeNetworkError, "failed to fetch odds", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewDataSourceError(f.Name(), ErrCodeAuthenticationFailed, "invalid API key", ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(f.Name(), ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	case resp.StatusCode >= 500:
		return nil, NewDataSourceError(f.Name(), ErrCodeServerError, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(f.Name(), ErrCodeNotFound, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var payload FeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewDataSourceError(f.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}

	candidates := recordsToCandidates(payload.Records, f.logger.WithField("source", f.Name()))
	resolved, _ := f.resolver.Resolve(payload.Markets)
	candidates = append(candidates, resolved...)

	f.logger.WithFields(logrus.Fields{
		"records":    len(payload.Records),
		"markets":    len(payload.Markets),
		"candidates": len(candidates),
	}).Info("Fetched odds feed")

	return candidates, nil
}
