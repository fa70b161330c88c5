package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/criteria"
	"primerjalnik/server/internal/models"
)

// Client talks to the external listings backend. It is the only component
// that knows the backend's URL layout; everything else works with criteria
// and Vehicle values.
type Client struct {
	baseURL string
	logger  *logrus.Logger
	client  *http.Client

	makesLock  sync.RWMutex
	makesCache map[models.Category][]string
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Client{
		baseURL:    baseURL,
		logger:     logger,
		client:     &http.Client{Timeout: timeout},
		makesCache: make(map[models.Category][]string),
	}
}

// SearchListings queries the backend catalog with the non-empty criteria
// fields and returns the matching vehicles, each tagged with the category it
// was fetched from. Transport failures and malformed responses come back as
// distinguishable errors so callers can tell "zero matches" from "fetch
// failed".
func (c *Client) SearchListings(ctx context.Context, category models.Category, crit criteria.Criteria) ([]models.Vehicle, error) {
	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, category.Endpoint())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create listings request")
	}
	req.URL.RawQuery = crit.Values().Encode()

	var listings []models.Vehicle
	if err := c.getJSON(req, &listings); err != nil {
		return nil, err
	}

	for i := range listings {
		listings[i].Category = category
	}
	return listings, nil
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// SearchByPrompt forwards a free-text prompt to the AI search endpoint.
// Whatever comes back is interpreted as car listings.
func (c *Client) SearchByPrompt(ctx context.Context, prompt string) ([]models.Vehicle, error) {
	body, err := json.Marshal(promptRequest{Prompt: prompt})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDecode, err, "failed to encode prompt")
	}

	endpoint := c.baseURL + "/api/ai/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create prompt request")
	}
	req.Header.Set("Content-Type", "application/json")

	var listings []models.Vehicle
	if err := c.getJSON(req, &listings); err != nil {
		return nil, err
	}

	for i := range listings {
		listings[i].Category = models.CategoryCar
	}
	return listings, nil
}

// Makes returns the known makes for a category, deduplicated and sorted.
// Results are cached in memory; the scheduler refreshes the cache
// periodically so the form dropdowns stay warm.
func (c *Client) Makes(ctx context.Context, category models.Category) ([]string, error) {
	c.makesLock.RLock()
	if cached, ok := c.makesCache[category]; ok {
		c.makesLock.RUnlock()
		return cached, nil
	}
	c.makesLock.RUnlock()

	return c.RefreshMakes(ctx, category)
}

// RefreshMakes fetches the make list from the backend and replaces the
// cached copy.
func (c *Client) RefreshMakes(ctx context.Context, category models.Category) ([]string, error) {
	var makes []string
	var err error
	if category == models.CategoryCar {
		makes, err = c.fetchCarQueryMakes(ctx)
	} else {
		makes, err = c.fetchPlainStrings(ctx, fmt.Sprintf("%s/api/%s/makes", c.baseURL, category.Endpoint()), nil)
	}
	if err != nil {
		return nil, err
	}

	makes = dedupeSorted(makes)

	c.makesLock.Lock()
	c.makesCache[category] = makes
	c.makesLock.Unlock()

	c.logger.WithFields(logrus.Fields{
		"category": category,
		"makes":    len(makes),
	}).Debug("Refreshed makes cache")

	return makes, nil
}

// Models returns the models offered for a make, deduplicated and sorted.
// An empty make yields an empty list without touching the backend.
func (c *Client) Models(ctx context.Context, category models.Category, make string) ([]string, error) {
	if make == "" {
		return nil, nil
	}

	query := map[string]string{"make": make}
	var modelNames []string
	var err error
	if category == models.CategoryCar {
		modelNames, err = c.fetchCarQueryModels(ctx, make)
	} else {
		modelNames, err = c.fetchPlainStrings(ctx, fmt.Sprintf("%s/api/%s/models", c.baseURL, category.Endpoint()), query)
	}
	if err != nil {
		return nil, err
	}
	return dedupeSorted(modelNames), nil
}

func (c *Client) fetchPlainStrings(ctx context.Context, endpoint string, query map[string]string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create lookup request")
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	var values []string
	if err := c.getJSON(req, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// getJSON executes the request and decodes the body into out. Every failure
// is logged here so handlers only have to decide how far to degrade.
func (c *Client) getJSON(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("url", req.URL.String()).Error("Backend request failed")
		return apperrors.Wrap(apperrors.ErrNetwork, err, "backend request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"url":    req.URL.String(),
			"status": resp.StatusCode,
		}).Error("Backend returned non-success status")
		return apperrors.New(apperrors.ErrNetwork, fmt.Sprintf("backend returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.WithError(err).WithField("url", req.URL.String()).Error("Failed to read backend response")
		return apperrors.Wrap(apperrors.ErrNetwork, err, "failed to read backend response")
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.WithError(err).WithField("url", req.URL.String()).Error("Failed to parse backend response")
		return apperrors.Wrap(apperrors.ErrDecode, err, "failed to parse backend response")
	}
	return nil
}

func dedupeSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
