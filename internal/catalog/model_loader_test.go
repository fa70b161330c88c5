package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/models"
)

// stubFetcher returns canned model lists and can hold a lookup open until
// released, to simulate a slow backend.
type stubFetcher struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
	block   map[string]chan struct{}
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		results: make(map[string][]string),
		errs:    make(map[string]error),
		block:   make(map[string]chan struct{}),
	}
}

func (f *stubFetcher) Models(ctx context.Context, category models.Category, make string) ([]string, error) {
	f.mu.Lock()
	gate := f.block[make]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[make]; err != nil {
		return nil, err
	}
	return f.results[make], nil
}

func TestLoad_InstallsModelsForMake(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.results["Toyota"] = []string{"Auris", "Corolla"}
	loader := NewModelLoader(fetcher)

	names, err := loader.Load(context.Background(), models.CategoryCar, "Toyota")

	assert.NoError(t, err)
	assert.Equal(t, []string{"Auris", "Corolla"}, names)
	assert.Equal(t, []string{"Auris", "Corolla"}, loader.Current(models.CategoryCar))
}

func TestLoad_EmptyMakeClearsList(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.results["Toyota"] = []string{"Corolla"}
	loader := NewModelLoader(fetcher)

	_, err := loader.Load(context.Background(), models.CategoryCar, "Toyota")
	assert.NoError(t, err)

	names, err := loader.Load(context.Background(), models.CategoryCar, "")
	assert.NoError(t, err)
	assert.Empty(t, names)
	assert.Empty(t, loader.Current(models.CategoryCar))
}

func TestLoad_StaleResponseDoesNotOverwriteNewerSelection(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.results["Toyota"] = []string{"Corolla"}
	fetcher.results["Audi"] = []string{"A4"}

	gate := make(chan struct{})
	fetcher.block["Toyota"] = gate

	loader := NewModelLoader(fetcher)

	type result struct {
		names []string
		err   error
	}
	slow := make(chan result, 1)
	go func() {
		names, err := loader.Load(context.Background(), models.CategoryCar, "Toyota")
		slow <- result{names, err}
	}()

	// Let the slow lookup start before selecting the newer make.
	time.Sleep(20 * time.Millisecond)

	names, err := loader.Load(context.Background(), models.CategoryCar, "Audi")
	assert.NoError(t, err)
	assert.Equal(t, []string{"A4"}, names)

	close(gate)
	got := <-slow
	assert.ErrorIs(t, got.err, ErrSuperseded)
	assert.Nil(t, got.names)

	assert.Equal(t, []string{"A4"}, loader.Current(models.CategoryCar))
}

func TestLoad_FetchErrorLeavesListAlone(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.results["Toyota"] = []string{"Corolla"}
	fetcher.errs["Audi"] = apperrors.New(apperrors.ErrNetwork, "backend request failed")

	loader := NewModelLoader(fetcher)

	_, err := loader.Load(context.Background(), models.CategoryCar, "Toyota")
	assert.NoError(t, err)

	_, err = loader.Load(context.Background(), models.CategoryCar, "Audi")
	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrNetwork, apperrors.CodeOf(err))
}

func TestLoad_CategoriesAreIndependent(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.results["Toyota"] = []string{"Corolla"}
	fetcher.results["Yamaha"] = []string{"MT-07"}

	loader := NewModelLoader(fetcher)

	_, err := loader.Load(context.Background(), models.CategoryCar, "Toyota")
	assert.NoError(t, err)
	_, err = loader.Load(context.Background(), models.CategoryMotorcycle, "Yamaha")
	assert.NoError(t, err)

	assert.Equal(t, []string{"Corolla"}, loader.Current(models.CategoryCar))
	assert.Equal(t, []string{"MT-07"}, loader.Current(models.CategoryMotorcycle))
}
