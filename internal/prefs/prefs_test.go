package prefs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/models"
	"primerjalnik/server/internal/session"
)

func testIdentity() session.Identity {
	return session.Identity{UserID: "123", Token: "token-abc"}
}

func newTestStore(handler http.Handler) (*Store, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewStore(server.URL, 2*time.Second, nil), server
}

func TestFetch_ReadsAndCachesProfiles(t *testing.T) {
	var gotPath, gotAuth string
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"preferences":[{"make":"Toyota","model":"Corolla"}]}`))
	}))
	defer server.Close()

	prefs, err := store.Fetch(context.Background(), testIdentity(), models.CategoryCar)

	assert.NoError(t, err)
	assert.Equal(t, "/api/users/123/preferences/car", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Len(t, prefs, 1)
	assert.Equal(t, "Toyota", prefs[0].Make)

	cached := store.Cached(testIdentity(), models.CategoryCar)
	assert.Equal(t, prefs, cached)
}

func TestFetch_NullPreferencesBecomeEmptyList(t *testing.T) {
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"preferences":null}`))
	}))
	defer server.Close()

	prefs, err := store.Fetch(context.Background(), testIdentity(), models.CategoryCar)

	assert.NoError(t, err)
	assert.NotNil(t, prefs)
	assert.Empty(t, prefs)
}

func TestFetch_BackendErrorLeavesCacheAlone(t *testing.T) {
	var fail bool
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"preferences":[{"make":"Toyota"}]}`))
	}))
	defer server.Close()

	_, err := store.Fetch(context.Background(), testIdentity(), models.CategoryCar)
	assert.NoError(t, err)

	fail = true
	_, err = store.Fetch(context.Background(), testIdentity(), models.CategoryCar)
	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrNetwork, apperrors.CodeOf(err))

	cached := store.Cached(testIdentity(), models.CategoryCar)
	assert.Len(t, cached, 1)
}

func TestAdd_RejectsEmptyPreferenceWithoutRequest(t *testing.T) {
	var calls int
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	maxPrice := 20000
	err := store.Add(context.Background(), testIdentity(), models.CategoryCar, models.Preference{MaxPrice: &maxPrice})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
	assert.Zero(t, calls)
}

func TestAdd_AppendsToBackendList(t *testing.T) {
	var putBody putPreferencesRequest
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"preferences":[{"make":"Audi"}]}`))
		case http.MethodPut:
			assert.Equal(t, "/api/users/123/preferences", r.URL.Path)
			assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	err := store.Add(context.Background(), testIdentity(), models.CategoryCar, models.Preference{Make: "Toyota"})

	assert.NoError(t, err)
	assert.Equal(t, models.CategoryCar, putBody.VehicleType)
	assert.Len(t, putBody.Preferences, 2)
	assert.Equal(t, "Audi", putBody.Preferences[0].Make)
	assert.Equal(t, "Toyota", putBody.Preferences[1].Make)

	cached := store.Cached(testIdentity(), models.CategoryCar)
	assert.Len(t, cached, 2)
}

func TestAdd_CacheUntouchedWhenSaveFails(t *testing.T) {
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"preferences":[]}`))
		case http.MethodPut:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	err := store.Add(context.Background(), testIdentity(), models.CategoryCar, models.Preference{Make: "Toyota"})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrNetwork, apperrors.CodeOf(err))
	assert.Empty(t, store.Cached(testIdentity(), models.CategoryCar))
}

func TestRemove_DeletesByIndex(t *testing.T) {
	var gotPath string
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"preferences":[{"make":"Audi"},{"make":"Toyota"}]}`))
			return
		}
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := store.Fetch(context.Background(), testIdentity(), models.CategoryCar)
	assert.NoError(t, err)

	err = store.Remove(context.Background(), testIdentity(), models.CategoryCar, 0)

	assert.NoError(t, err)
	assert.Equal(t, "/api/users/123/preferences/car/0", gotPath)

	cached := store.Cached(testIdentity(), models.CategoryCar)
	assert.Len(t, cached, 1)
	assert.Equal(t, "Toyota", cached[0].Make)
}

func TestRemove_NegativeIndexIsNoOp(t *testing.T) {
	var calls int
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	err := store.Remove(context.Background(), testIdentity(), models.CategoryCar, -1)

	assert.NoError(t, err)
	assert.Zero(t, calls)
}

func TestRemove_UnknownIndexIsBenign(t *testing.T) {
	store, server := newTestStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := store.Remove(context.Background(), testIdentity(), models.CategoryCar, 5)

	assert.NoError(t, err)
}
