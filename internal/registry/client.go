package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://clinicaltrials.gov"
	DefaultTimeout = 60 * time.Second

	studiesPath = "/api/v2/studies"

	// Phase 3/4 trials with at least one US site.
	trialTerm      = "AREA[Phase](PHASE4 OR PHASE3)AND AREA[LocationCountry](United States)"
	recruiting     = "RECRUITING"
	maxErrorSample = 500
)

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SearchRecruitingTrials returns at most maxStudies recruiting Phase 3/4 US
// trials for condition. Upstream failures end pagination and are only logged;
// whatever was collected before the failure is returned.
func (c *Client) SearchRecruitingTrials(ctx context.Context, condition string, maxStudies int) SearchResult {
	result, err := c.FetchRecruitingTrials(ctx, condition, maxStudies)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"condition":   condition,
			"max_studies": maxStudies,
			"fetched":     result.Len(),
		}).Error("Failed to fetch clinical trial data")
	}
	return result
}

// FetchRecruitingTrials is SearchRecruitingTrials but also reports the error
// that stopped pagination early. The result is valid even when err != nil.
func (c *Client) FetchRecruitingTrials(ctx context.Context, condition string, maxStudies int) (SearchResult, error) {
	if maxStudies < 0 {
		maxStudies = 0
	}

	params := url.Values{}
	params.Set("query.cond", condition)
	params.Set("query.term", trialTerm)
	params.Set("filter.overallStatus", recruiting)
	params.Set("pageSize", strconv.Itoa(maxStudies))

	result := NewSearchResult()
	pages := 0

	for {
		page, err := c.fetchPage(ctx, params)
		if err != nil {
			return result, err
		}
		pages++

		for _, study := range page.Studies {
			if result.Len() >= maxStudies {
				break
			}
			result.add(study)
		}

		c.logger.WithFields(logrus.Fields{
			"condition": condition,
			"page":      pages,
			"studies":   len(page.Studies),
			"fetched":   result.Len(),
			"has_next":  page.NextPageToken != "",
		}).Debug("Registry page processed")

		if page.NextPageToken == "" || result.Len() >= maxStudies {
			return result, nil
		}
		params.Set("pageToken", page.NextPageToken)
	}
}

func (c *Client) fetchPage(ctx context.Context, params url.Values) (*StudiesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + studiesPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"url": endpoint,
	}).Debug("Making registry request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		sample, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSample))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(sample)}
	}

	var page StudiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode studies page: %w", err)
	}

	return &page, nil
}

// Ping checks that the registry answers its version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// StatusError is returned when the registry answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("registry request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("registry request failed with status %d: %s", e.StatusCode, e.Body)
}
