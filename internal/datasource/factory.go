package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/config"
)

// Factory creates candidate sources based on configuration
type Factory struct {
	logger logrus.FieldLogger
	config *config.Config
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, log logrus.FieldLogger) *Factory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Factory{
		logger: log,
		config: cfg,
	}
}

// NewHTTPClient builds the rate limited feed client from configuration
func (f *Factory) NewHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	if f.config != nil {
		cfg.Timeout = f.config.FeedTimeout()
		cfg.MaxRetries = f.config.Feed.RetryAttempts
		cfg.RateLimit = f.config.Feed.RequestsPerSecond
	}
	return NewRateLimitedHTTPClient(cfg, f.logger.WithField("component", "feed_client"))
}

// NewCandidateSource returns a file source when path is set, otherwise the configured feed
func (f *Factory) NewCandidateSource(path string) (CandidateSource, error) {
	if path != "" {
		return NewFileSource(path, f.logger), nil
	}

	if f.config == nil || !f.config.Feed.Enabled {
		return nil, fmt.Errorf("no odds file given and the odds feed is disabled")
	}
	if f.config.Feed.URL == "" {
		return nil, fmt.Errorf("odds feed URL is required")
	}

	f.logger.WithField("url", f.config.Feed.URL).Info("Using odds feed")
	return NewFeedSource(f.NewHTTPClient(), f.config.Feed.URL, f.config.Feed.APIKey, f.logger), nil
}
