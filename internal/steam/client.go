// Package steam talks to the external catalog provider and converts its
// payloads into normalized catalog records.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"gaming-advisor/internal/common/config"
	"gaming-advisor/internal/common/errors"
	commonhttp "gaming-advisor/internal/common/http"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/common/metrics"
	"gaming-advisor/internal/models"
)

// Client fetches and normalizes catalog metadata from the provider.
type Client struct {
	baseURL       string
	apiBaseURL    string
	apiKey        string
	httpClient    *commonhttp.Client
	log           logger.Logger
	maxRetries    int
	backoffBase   time.Duration
	backoffFactor float64
	jitter        float64
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.SteamConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		apiBaseURL:    cfg.APIBaseURL,
		apiKey:        cfg.APIKey,
		httpClient:    commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		log:           log,
		maxRetries:    cfg.MaxRetries,
		backoffBase:   config.GetDuration(cfg.BackoffBase),
		backoffFactor: cfg.BackoffFactor,
		jitter:        cfg.BackoffJitter,
	}
}

// Fetch retrieves normalized metadata for one game. Rate-limit and transient
// provider failures are retried with exponential backoff; NOT_FOUND and
// INVALID_PAYLOAD are terminal. The retry budget belongs to this call alone.
func (c *Client) Fetch(ctx context.Context, gameID string) (*models.CatalogRecord, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.CatalogFetchRetries.Inc()

			delay := c.backoffDelay(attempt)
			c.log.Warn("retrying catalog fetch", map[string]interface{}{
				"game_id": gameID,
				"attempt": attempt,
				"delay":   delay.String(),
			})

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.CatalogFetches.WithLabelValues("unavailable").Inc()
				return nil, errors.NewProviderUnavailableError(ctx.Err().Error())
			}
		}

		record, err := c.fetchOnce(ctx, gameID)
		if err == nil {
			metrics.CatalogFetches.WithLabelValues("success").Inc()
			return record, nil
		}

		lastErr = err
		if !errors.IsRetryable(err) {
			break
		}
	}

	switch errors.CodeOf(lastErr) {
	case errors.ErrCodeNotFound:
		metrics.CatalogFetches.WithLabelValues("not_found").Inc()
	case errors.ErrCodeInvalidPayload:
		metrics.CatalogFetches.WithLabelValues("invalid_payload").Inc()
	case errors.ErrCodeRateLimited:
		metrics.CatalogFetches.WithLabelValues("rate_limited").Inc()
	default:
		metrics.CatalogFetches.WithLabelValues("unavailable").Inc()
	}

	return nil, lastErr
}

// backoffDelay computes the delay before the given retry attempt with
// jitter applied symmetrically around the exponential base.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := float64(c.backoffBase)
	for i := 1; i < attempt; i++ {
		base *= c.backoffFactor
	}

	jittered := base * (1 + c.jitter*(2*rand.Float64()-1))
	return time.Duration(jittered)
}

func (c *Client) fetchOnce(ctx context.Context, gameID string) (*models.CatalogRecord, error) {
	endpoint := fmt.Sprintf("%s/api/appdetails?appids=%s", c.baseURL, url.QueryEscape(gameID))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewProviderUnavailableError(err.Error())
	}

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		// network failure or per-call timeout
		return nil, errors.NewProviderUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.NewRateLimitedError(fmt.Sprintf("gameId: %s", gameID))
	case resp.StatusCode >= 500:
		return nil, errors.NewProviderUnavailableError(fmt.Sprintf("provider returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.NewInvalidPayloadError(gameID, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderUnavailableError(err.Error())
	}

	var envelope map[string]struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewInvalidPayloadError(gameID, fmt.Sprintf("malformed envelope: %v", err))
	}

	entry, ok := envelope[gameID]
	if !ok || !entry.Success {
		return nil, errors.NewNotFoundError(gameID)
	}

	if err := validatePayload(entry.Data); err != nil {
		return nil, errors.NewInvalidPayloadError(gameID, err.Error())
	}

	var data appDetailsData
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		return nil, errors.NewInvalidPayloadError(gameID, fmt.Sprintf("malformed data object: %v", err))
	}

	return normalize(gameID, &data), nil
}

// AppListEntry is one row of the provider's paginated app list.
type AppListEntry struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// ListAppIDs walks the provider's paginated app list. Used by operational
// tooling to seed the local catalog table.
func (c *Client) ListAppIDs(ctx context.Context) ([]AppListEntry, error) {
	var apps []AppListEntry
	lastAppID := 0

	for {
		endpoint := fmt.Sprintf(
			"%s/IStoreService/GetAppList/v1/?key=%s&include_games=true&max_results=50000&last_appid=%d",
			c.apiBaseURL, url.QueryEscape(c.apiKey), lastAppID,
		)

		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, errors.NewProviderUnavailableError(err.Error())
		}

		resp, err := c.httpClient.DoWithContext(ctx, req)
		if err != nil {
			return nil, errors.NewProviderUnavailableError(err.Error())
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, errors.NewProviderUnavailableError(fmt.Sprintf("provider returned %d", resp.StatusCode))
		}

		var payload struct {
			Response struct {
				Apps            []AppListEntry `json:"apps"`
				HaveMoreResults bool           `json:"have_more_results"`
				LastAppID       int            `json:"last_appid"`
			} `json:"response"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			return nil, errors.NewInvalidPayloadError("app_list", fmt.Sprintf("malformed page: %v", err))
		}

		apps = append(apps, payload.Response.Apps...)

		if !payload.Response.HaveMoreResults {
			break
		}
		lastAppID = payload.Response.LastAppID
	}

	return apps, nil
}
