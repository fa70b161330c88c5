package prefs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/models"
	"primerjalnik/server/internal/session"
)

// Store keeps the per-identity saved search profiles. The backend is the
// source of truth; the in-memory copy is only a cache of the last confirmed
// state and is never updated ahead of the backend.
type Store struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger

	mu    sync.RWMutex
	cache map[string][]models.Preference
}

func NewStore(baseURL string, timeout time.Duration, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Store{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		cache:   make(map[string][]models.Preference),
	}
}

func cacheKey(userID string, category models.Category) string {
	return userID + "/" + string(category)
}

type preferencesResponse struct {
	Preferences []models.Preference `json:"preferences"`
}

type putPreferencesRequest struct {
	VehicleType models.Category     `json:"vehicleType"`
	Preferences []models.Preference `json:"preferences"`
}

// Fetch reads the identity's saved profiles for a category from the backend
// and refreshes the cache. Callers at the UI boundary degrade a failure to
// an empty list; the error is still returned here so tests can tell the two
// apart.
func (s *Store) Fetch(ctx context.Context, ident session.Identity, category models.Category) ([]models.Preference, error) {
	endpoint := fmt.Sprintf("%s/api/users/%s/preferences/%s", s.baseURL, ident.UserID, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create preferences request")
	}
	ident.Authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to fetch preferences")
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err, "failed to fetch preferences")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.New(apperrors.ErrNetwork, fmt.Sprintf("preferences fetch returned status %d", resp.StatusCode))
	}

	var decoded preferencesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDecode, err, "failed to parse preferences response")
	}

	prefs := decoded.Preferences
	if prefs == nil {
		prefs = []models.Preference{}
	}

	s.mu.Lock()
	s.cache[cacheKey(ident.UserID, category)] = prefs
	s.mu.Unlock()

	return prefs, nil
}

// Cached returns the last confirmed state without touching the backend.
func (s *Store) Cached(ident session.Identity, category models.Category) []models.Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached := s.cache[cacheKey(ident.UserID, category)]
	out := make([]models.Preference, len(cached))
	copy(out, cached)
	return out
}

// Add validates and saves a new profile. A preference with neither make nor
// model is rejected before any request is made. Empty fields are stripped by
// serialization; the cache is appended to only after the backend confirms.
func (s *Store) Add(ctx context.Context, ident session.Identity, category models.Category, pref models.Preference) error {
	if pref.IsEmpty() {
		return apperrors.New(apperrors.ErrValidation, "a preference needs at least a make or a model")
	}

	current, err := s.Fetch(ctx, ident, category)
	if err != nil {
		return err
	}

	updated := append(append([]models.Preference{}, current...), pref)
	body, err := json.Marshal(putPreferencesRequest{VehicleType: category, Preferences: updated})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDecode, err, "failed to encode preferences")
	}

	endpoint := fmt.Sprintf("%s/api/users/%s/preferences", s.baseURL, ident.UserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create preferences request")
	}
	req.Header.Set("Content-Type", "application/json")
	ident.Authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to save preference")
		return apperrors.Wrap(apperrors.ErrNetwork, err, "failed to save preference")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.New(apperrors.ErrNetwork, fmt.Sprintf("preference save returned status %d", resp.StatusCode))
	}

	s.mu.Lock()
	s.cache[cacheKey(ident.UserID, category)] = updated
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"user_id":  ident.UserID,
		"category": category,
		"count":    len(updated),
	}).Info("Preference saved")
	return nil
}

// Remove deletes the profile at the given position. The backend decides the
// final state; a position it does not know is treated as a benign no-op.
func (s *Store) Remove(ctx context.Context, ident session.Identity, category models.Category, index int) error {
	if index < 0 {
		return nil
	}

	endpoint := fmt.Sprintf("%s/api/users/%s/preferences/%s/%d", s.baseURL, ident.UserID, category, index)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrNetwork, err, "failed to create preferences request")
	}
	ident.Authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", ident.UserID).Error("Failed to delete preference")
		return apperrors.Wrap(apperrors.ErrNetwork, err, "failed to delete preference")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.New(apperrors.ErrNetwork, fmt.Sprintf("preference delete returned status %d", resp.StatusCode))
	}

	key := cacheKey(ident.UserID, category)
	s.mu.Lock()
	cached := s.cache[key]
	if index < len(cached) {
		s.cache[key] = append(append([]models.Preference{}, cached[:index]...), cached[index+1:]...)
	}
	s.mu.Unlock()

	return nil
}
