package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/apex-predict/internal/models"
)

// HTTPClientConfig holds configuration for the timing-feed HTTP client
type HTTPClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // max consecutive failures before circuit break
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        5,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         10.0,
		CircuitBreakerMax: 5,
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a
// consecutive-failure circuit breaker.
type RateLimitedHTTPClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int
	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	lastError         error
	logger            *logrus.Logger
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = timingFeedRetryPolicy()
	retryClient.Logger = nil

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		logger:            logger,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	if c.isOpen {
		lastErr := c.lastError
		c.mu.Unlock()
		return nil, fmt.Errorf("circuit breaker open: %v", lastErr)
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(retryReq.WithContext(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.consecutiveErrors++
		c.lastError = err
		if c.consecutiveErrors >= c.circuitBreakerMax {
			c.isOpen = true
			c.logger.WithFields(logrus.Fields{
				"consecutive_errors": c.consecutiveErrors,
				"error":              err.Error(),
			}).Error("Circuit breaker opened")
		}
		return nil, err
	}

	if resp.StatusCode < 500 {
		c.consecutiveErrors = 0
		c.isOpen = false
	}
	return resp, nil
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// timingFeedRetryPolicy retries network errors, 429 and 5xx responses.
func timingFeedRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return true, nil
		}
		return false, nil
	}
}

// TimingFeedClient pulls race inputs from the timing provider's REST API
// and maps the feed's wire format into pipeline models.
type TimingFeedClient struct {
	http    *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// NewTimingFeedClient creates a timing feed client
func NewTimingFeedClient(cfg HTTPClientConfig, logger *logrus.Logger) *TimingFeedClient {
	return &TimingFeedClient{
		http:    NewRateLimitedHTTPClient(cfg, logger),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// RaceInput fetches and decodes the full input for one race.
func (t *TimingFeedClient) RaceInput(ctx context.Context, raceID uuid.UUID) (*models.RaceInput, error) {
	url := fmt.Sprintf("%s/v1/races/%s/input", t.baseURL, raceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if t.apiKey != "" {
		req.Header.Set("X-API-Key", t.apiKey)
	}

	resp, err := t.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("timing feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: race %s", models.ErrNotFound, raceID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("timing feed returned %d: %s", resp.StatusCode, string(body))
	}

	var wire wireRaceInput
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode timing feed response: %w", err)
	}

	input, err := wire.toModel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataIntegrity, err)
	}

	t.logger.WithFields(logrus.Fields{
		"race_id": raceID,
		"riders":  len(input.Riders),
	}).Debug("Fetched race input from timing feed")

	return input, nil
}

// Close releases the underlying HTTP client.
func (t *TimingFeedClient) Close() error {
	return t.http.Close()
}

// Wire types mirror the timing feed's JSON, which publishes lap times as
// "M'SS.mmm" strings.

type wireRaceInput struct {
	RaceID        uuid.UUID             `json:"race_id"`
	ForecastTemp  float64               `json:"forecast_temp"`
	ReferenceDate time.Time             `json:"reference_date"`
	ForecastLaps  int                   `json:"forecast_laps"`
	Riders        []wireRider           `json:"riders"`
	Rankings      []models.EventRanking `json:"rankings"`
}

type wireRider struct {
	RiderID     uuid.UUID     `json:"rider_id"`
	Position    int           `json:"position"`
	GapToAhead  float64       `json:"gap_to_ahead"`
	History     []wireSession `json:"history"`
	CurrentLaps []wireLap     `json:"current_laps"`
}

type wireSession struct {
	Session models.Session `json:"session"`
	Laps    []wireLap      `json:"laps"`
}

type wireLap struct {
	RiderID       uuid.UUID `json:"rider_id"`
	SessionID     uuid.UUID `json:"session_id"`
	LapNumber     int       `json:"lap_number"`
	LapTime       string    `json:"lap_time"`
	FuelRemaining float64   `json:"fuel_remaining"`
	TrackTemp     float64   `json:"track_temp"`
	CompoundID    string    `json:"compound_id"`
}

func (w wireRaceInput) toModel() (*models.RaceInput, error) {
	input := &models.RaceInput{
		RaceID:        w.RaceID,
		ForecastTemp:  w.ForecastTemp,
		ReferenceDate: w.ReferenceDate,
		ForecastLaps:  w.ForecastLaps,
		Rankings:      w.Rankings,
		Riders:        make([]models.RiderInput, len(w.Riders)),
	}

	for i, r := range w.Riders {
		rider := models.RiderInput{
			RiderID:    r.RiderID,
			Position:   r.Position,
			GapToAhead: r.GapToAhead,
			History:    make([]models.SessionLaps, len(r.History)),
		}

		for j, s := range r.History {
			laps, err := convertLaps(s.Laps)
			if err != nil {
				return nil, fmt.Errorf("rider %s session %s: %w", r.RiderID, s.Session.ID, err)
			}
			rider.History[j] = models.SessionLaps{Session: s.Session, Laps: laps}
		}

		current, err := convertLaps(r.CurrentLaps)
		if err != nil {
			return nil, fmt.Errorf("rider %s current laps: %w", r.RiderID, err)
		}
		rider.CurrentLaps = current

		input.Riders[i] = rider
	}

	return input, nil
}

func convertLaps(laps []wireLap) ([]models.LapRecord, error) {
	out := make([]models.LapRecord, len(laps))
	for i, l := range laps {
		seconds, err := ParseLapTime(l.LapTime)
		if err != nil {
			return nil, fmt.Errorf("lap %d: %w", l.LapNumber, err)
		}
		out[i] = models.LapRecord{
			RiderID:       l.RiderID,
			SessionID:     l.SessionID,
			LapNumber:     l.LapNumber,
			RawLapTime:    seconds,
			FuelRemaining: l.FuelRemaining,
			TrackTemp:     l.TrackTemp,
			CompoundID:    l.CompoundID,
		}
	}
	return out, nil
}
