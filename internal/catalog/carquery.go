package catalog

import (
	"context"
	"net/http"
	"strings"

	"primerjalnik/server/internal/apperrors"
)

// The car category is backed by a third-party vehicle-data provider whose
// responses wrap the lists in an object instead of returning a bare array.
// These helpers unwrap them into plain display names.

type carQueryMakesResponse struct {
	Makes []struct {
		MakeDisplay string `json:"make_display"`
	} `json:"Makes"`
}

type carQueryModelsResponse struct {
	Models []struct {
		ModelName string `json:"model_name"`
	} `json:"Models"`
}

func (c *Client) fetchCarQueryMakes(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cars/carquery/makes", nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create makes request")
	}

	var wrapped carQueryMakesResponse
	if err := c.getJSON(req, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Makes == nil {
		return nil, apperrors.New(apperrors.ErrDecode, "makes data is missing or malformed")
	}

	makes := make([]string, 0, len(wrapped.Makes))
	for _, m := range wrapped.Makes {
		makes = append(makes, m.MakeDisplay)
	}
	return makes, nil
}

func (c *Client) fetchCarQueryModels(ctx context.Context, makeName string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cars/carquery/models", nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create models request")
	}
	q := req.URL.Query()
	q.Set("make", strings.ToLower(makeName))
	req.URL.RawQuery = q.Encode()

	var wrapped carQueryModelsResponse
	if err := c.getJSON(req, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Models == nil {
		return nil, apperrors.New(apperrors.ErrDecode, "models data is missing or malformed")
	}

	names := make([]string, 0, len(wrapped.Models))
	for _, m := range wrapped.Models {
		names = append(names, m.ModelName)
	}
	return names, nil
}
