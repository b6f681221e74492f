package enrichment

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lvonguyen/rapidtriage/internal/netaddr"
)

const (
	blocklistDefaultBaseURL = "http://api.blocklist.de"
	blocklistLookupPath     = "/api.php"
	blocklistName           = "blocklist.de"
)

// BlocklistProvider implements the Provider interface for blocklist.de.
type BlocklistProvider struct {
	config     BlocklistConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// BlocklistConfig holds blocklist.de client configuration.
type BlocklistConfig struct {
	BaseURL          string
	RequestTimeout   time.Duration
	InsecureTLS      bool
	MaxResponseBytes int64
}

// DefaultBlocklistConfig returns sensible defaults for blocklist.de.
func DefaultBlocklistConfig() BlocklistConfig {
	return BlocklistConfig{
		BaseURL:          blocklistDefaultBaseURL,
		RequestTimeout:   10 * time.Second,
		MaxResponseBytes: 64 * 1024,
	}
}

// NewBlocklistProvider creates a new blocklist.de provider. Per-request
// deadlines come from RequestTimeout, not from the http.Client.
func NewBlocklistProvider(config BlocklistConfig, logger *zap.Logger) *BlocklistProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultBlocklistConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = defaults.MaxResponseBytes
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureTLS {
		logger.Warn("TLS certificate verification disabled for reputation lookups",
			zap.String("provider", blocklistName),
			zap.String("base_url", config.BaseURL),
		)
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via insecure_tls
	}

	return &BlocklistProvider{
		config:     config,
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}
}

// Name returns the provider identifier.
func (p *BlocklistProvider) Name() string {
	return blocklistName
}

// Lookup queries the report count for one address. It never retries.
func (p *BlocklistProvider) Lookup(ctx context.Context, addr netaddr.Address) Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	endpoint := p.config.BaseURL + blocklistLookupPath + "?ip=" + url.QueryEscape(addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Unresolved(ReasonTransportError, fmt.Errorf("%w: building request: %w", ErrTransport, err))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxResponseBytes))
	if err != nil {
		return classifyTransportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Unresolved(ReasonTransportError,
			fmt.Errorf("%w: %s returned status %d", ErrTransport, blocklistName, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Unresolved(ReasonMalformedResponse, &ContractError{
			Status: resp.StatusCode,
			Detail: "unexpected status",
			Body:   excerpt(string(body)),
		})
	}

	count, err := ParseReportCount(string(body))
	if err != nil {
		return Unresolved(ReasonMalformedResponse, err)
	}
	return Flagged(count)
}

// HealthCheck verifies the service is reachable. Any non-5xx answer counts.
func (p *BlocklistProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating health check request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s health check failed: %w", blocklistName, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, p.config.MaxResponseBytes))

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s returned status %d", blocklistName, resp.StatusCode)
	}
	return nil
}

// classifyTransportError separates deadline expiry from other network failures.
func classifyTransportError(err error) Outcome {
	if isTimeout(err) {
		return Unresolved(ReasonTimeout, fmt.Errorf("%w: %w", ErrLookupTimeout, err))
	}
	return Unresolved(ReasonTransportError, fmt.Errorf("%w: %w", ErrTransport, err))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
