// Package rates resolves historical EUR reference exchange rates from the
// ECB Data Portal, with a local cache so repeated runs stay offline.
package rates

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the ECB Data Portal API root.
const DefaultBaseURL = "https://data-api.ecb.europa.eu"

const ecbDateFormat = "2006-01-02"

// Observation is one daily ECB reference quote: units of currency per EUR.
type Observation struct {
	Date  time.Time
	Value decimal.Decimal
}

// Client fetches daily reference rates from the ECB Data Portal.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates an ECB Data Portal client.
func NewClient(baseURL string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// FetchObservations returns the daily quotes for a currency between start
// and end, ascending by date. Weekends and TARGET holidays have no
// observations; an empty result is not an error.
func (c *Client) FetchObservations(ctx context.Context, currency string, start, end time.Time) ([]Observation, error) {
	url := fmt.Sprintf("%s/service/data/EXR/D.%s.EUR.SP00.A?startPeriod=%s&endPeriod=%s&format=csvdata",
		c.baseURL, strings.ToUpper(currency),
		start.Format(ecbDateFormat), end.Format(ecbDateFormat))

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	observations, err := parseCSVData(body)
	if err != nil {
		return nil, fmt.Errorf("parsing ECB response for %s: %w", currency, err)
	}
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})
	return observations, nil
}

// parseCSVData extracts TIME_PERIOD/OBS_VALUE pairs from an SDMX csvdata
// payload. Column positions are taken from the header.
func parseCSVData(body []byte) ([]Observation, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	dateCol, valueCol := -1, -1
	for i, name := range header {
		switch name {
		case "TIME_PERIOD":
			dateCol = i
		case "OBS_VALUE":
			valueCol = i
		}
	}
	if dateCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("response is missing TIME_PERIOD/OBS_VALUE columns")
	}

	var observations []Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if dateCol >= len(record) || valueCol >= len(record) || record[valueCol] == "" {
			continue
		}
		date, err := time.Parse(ecbDateFormat, record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("invalid observation date %q: %w", record[dateCol], err)
		}
		value, err := decimal.NewFromString(record[valueCol])
		if err != nil {
			return nil, fmt.Errorf("invalid observation value %q: %w", record[valueCol], err)
		}
		observations = append(observations, Observation{Date: date, Value: value})
	}
	return observations, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries+1; attempt++ {
		if attempt > 0 {
			baseDelay := c.baseDelay
			if baseDelay == 0 {
				baseDelay = time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating ECB request: %w", err)
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ECB request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading ECB response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNoContent:
			// No observations in the requested window.
			return nil, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("ECB returned status %d (attempt %d/%d)",
				resp.StatusCode, attempt+1, c.maxRetries+1)
			continue
		default:
			return nil, fmt.Errorf("ECB returned status %d", resp.StatusCode)
		}
	}
	return nil, lastErr
}
