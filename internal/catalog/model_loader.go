package catalog

import (
	"context"
	"sync"

	"primerjalnik/server/internal/apperrors"
	"primerjalnik/server/internal/models"
)

// ErrSuperseded means a newer make was selected while this lookup was in
// flight; its result was discarded.
var ErrSuperseded = apperrors.New(apperrors.ErrNotFound, "model lookup superseded by a newer make selection")

// ModelFetcher is the part of the catalog client the loader needs.
type ModelFetcher interface {
	Models(ctx context.Context, category models.Category, make string) ([]string, error)
}

// ModelLoader guards the dependent make→model lookup. The model list shown
// for a category must always belong to the latest selected make: if the make
// changes while a models fetch is still resolving, the stale response must
// not overwrite the list for the new make. Every Load bumps a generation
// counter and only a response whose generation is still current may update
// the shared list.
type ModelLoader struct {
	fetcher ModelFetcher

	mu      sync.Mutex
	gen     map[models.Category]uint64
	current map[models.Category][]string
}

func NewModelLoader(fetcher ModelFetcher) *ModelLoader {
	return &ModelLoader{
		fetcher: fetcher,
		gen:     make(map[models.Category]uint64),
		current: make(map[models.Category][]string),
	}
}

// Load fetches the models for the selected make and, if no newer selection
// happened meanwhile, installs them as the category's current list. A
// superseded lookup returns ErrSuperseded and leaves the list alone.
// Clearing the make clears the list.
func (l *ModelLoader) Load(ctx context.Context, category models.Category, make string) ([]string, error) {
	l.mu.Lock()
	l.gen[category]++
	gen := l.gen[category]
	if make == "" {
		l.current[category] = nil
		l.mu.Unlock()
		return nil, nil
	}
	l.mu.Unlock()

	names, err := l.fetcher.Models(ctx, category, make)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen[category] != gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	l.current[category] = names
	return names, nil
}

// Current returns the model list for the latest completed selection.
func (l *ModelLoader) Current(category models.Category) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.current[category]))
	copy(out, l.current[category])
	return out
}
