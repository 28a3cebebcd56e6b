// Package openmeteo fetches two-day forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/engine/step/retry"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const moduleName = "openmeteo"

// forecastPath is appended to the configured base URL.
const forecastPath = "/v1/forecast"

// Client calls the forecast endpoint with retry. Each city gets its own circuit breaker, so one
// city's failures never use up another city's attempts.
type Client struct {
	baseURL      string
	hourlyFields []string
	dailyFields  []string
	forecastDays int
	timezone     string
	location     *time.Location

	httpClient *http.Client
	executor   *retry.Executor
	now        func() time.Time

	retryCfg  config.RetryConfig
	noBreaker bool
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	sleeper    retry.Sleeper
	onRetry    func(attempt int, err error)
	now        func() time.Time
	noBreaker  bool
}

// WithHTTPClient replaces the HTTP client. Its Timeout bounds each attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(o *clientOptions) { o.sleeper = s }
}

// WithRetryListener is called before each re-attempt.
func WithRetryListener(fn func(attempt int, err error)) Option {
	return func(o *clientOptions) { o.onRetry = fn }
}

// WithClock replaces the source of FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// WithoutCircuitBreaker disables the per-city breakers.
func WithoutCircuitBreaker() Option {
	return func(o *clientOptions) { o.noBreaker = true }
}

// NewClient builds a Client from the weather config block.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	wc := cfg.ETL.Weather
	o := &clientOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: wc.Timeout}
	}

	execOpts := []retry.Option{}
	if o.sleeper != nil {
		execOpts = append(execOpts, retry.WithSleeper(o.sleeper))
	}
	if o.onRetry != nil {
		execOpts = append(execOpts, retry.WithRetryListener(o.onRetry))
	}
	policy := retry.NewDefaultRetryPolicyFactory().FromConfig(wc.Retry)

	return &Client{
		baseURL:      strings.TrimRight(wc.BaseURL, "/"),
		hourlyFields: wc.HourlyFields,
		dailyFields:  wc.DailyFields,
		forecastDays: wc.ForecastDays,
		timezone:     cfg.ETL.System.Timezone,
		location:     cfg.Location(),
		httpClient:   o.httpClient,
		executor:     retry.NewExecutor(moduleName, policy, execOpts...),
		now:          o.now,
		retryCfg:     wc.Retry,
		noBreaker:    o.noBreaker,
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor returns city's breaker, creating it on first use. nil when breakers are disabled.
func (c *Client) breakerFor(city string) *gobreaker.CircuitBreaker {
	if c.noBreaker {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[city]
	if !ok {
		cb = retry.NewCircuitBreakerFromConfig(moduleName+":"+city, c.retryCfg)
		c.breakers[city] = cb
	}
	return cb
}

// Fetch returns the forecast for city.
func (c *Client) Fetch(ctx context.Context, city model.City) (*model.RawForecastPayload, error) {
	payload, _, err := c.FetchWithAttempts(ctx, city)
	return payload, err
}

// FetchWithAttempts is Fetch that also reports how many attempts were made.
func (c *Client) FetchWithAttempts(ctx context.Context, city model.City) (*model.RawForecastPayload, int, error) {
	var payload *model.RawForecastPayload
	attempts, err := c.executor.WithBreaker(c.breakerFor(city.Name)).Execute(ctx, func(ctx context.Context) error {
		p, err := c.fetchOnce(ctx, city)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}
	logger.Debugf("Fetched %d hourly and %d daily points for %s in %d attempt(s).",
		len(payload.Forecast.Hourly.Time), len(payload.Forecast.Daily.Time), city.Name, attempts)
	return payload, attempts, nil
}

// RequestURL renders the forecast URL for city.
func (c *Client) RequestURL(city model.City) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(city.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(city.Longitude, 'f', -1, 64))
	q.Set("daily", strings.Join(c.dailyFields, ","))
	q.Set("hourly", strings.Join(c.hourlyFields, ","))
	q.Set("timezone", c.timezone)
	q.Set("forecast_days", strconv.Itoa(c.forecastDays))
	return c.baseURL + forecastPath + "?" + q.Encode()
}

func (c *Client) fetchOnce(ctx context.Context, city model.City) (*model.RawForecastPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(city), nil)
	if err != nil {
		return nil, exception.NewTerminalError(moduleName, "failed to create forecast request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, exception.NewTerminalError(moduleName, "forecast request canceled", err)
		}
		return nil, exception.NewRetryableError(moduleName, fmt.Sprintf("forecast request for %s failed", city.Name), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.NewRetryableError(moduleName, "failed to read forecast response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, exception.NewRetryableError(moduleName,
			fmt.Sprintf("status code %d for %s, body: %s", resp.StatusCode, city.Name, snippet),
			exception.ErrUnexpectedStatus)
	}

	var forecast model.OpenMeteoForecast
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, exception.NewTerminalError(moduleName, "failed to decode forecast response", errors.Join(exception.ErrMalformedPayload, err))
	}
	return &model.RawForecastPayload{
		City:      city.Name,
		FetchedAt: c.now().In(c.location),
		Forecast:  forecast,
		Body:      json.RawMessage(body),
	}, nil
}
