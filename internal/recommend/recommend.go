package recommend

import (
	"context"

	"github.com/sirupsen/logrus"

	"primerjalnik/server/internal/criteria"
	"primerjalnik/server/internal/models"
)

// Cap is the maximum number of recommended listings returned.
const Cap = 12

// Searcher runs a catalog query for one relaxation step.
type Searcher interface {
	SearchListings(ctx context.Context, category models.Category, crit criteria.Criteria) ([]models.Vehicle, error)
}

// NewestSource supplies the most recently seen listings for backfill.
type NewestSource interface {
	Newest(ctx context.Context, limit int) ([]models.Vehicle, error)
}

// Recommender turns saved search profiles into a personalized listing feed.
//
// For each preference it runs a progressively relaxed query: the full
// filters first, then make-only, then unfiltered, stopping at the first step
// that yields any result. Matches are merged across preferences with
// identifier-based deduplication up to Cap, and the feed is backfilled with
// the newest listings only if the merged total is still under the cap.
type Recommender struct {
	searcher Searcher
	newest   NewestSource
	logger   *logrus.Logger
}

func New(searcher Searcher, newest NewestSource, logger *logrus.Logger) *Recommender {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Recommender{searcher: searcher, newest: newest, logger: logger}
}

// ForPreferences builds the feed for one category's saved profiles.
func (r *Recommender) ForPreferences(ctx context.Context, category models.Category, prefs []models.Preference) []models.Vehicle {
	merged := make([]models.Vehicle, 0, Cap)
	seen := make(map[string]struct{}, Cap)

	appendDistinct := func(listings []models.Vehicle) {
		for _, v := range listings {
			if len(merged) >= Cap {
				return
			}
			if _, ok := seen[v.ID]; ok {
				continue
			}
			seen[v.ID] = struct{}{}
			merged = append(merged, v)
		}
	}

	for _, pref := range prefs {
		matches := r.relaxedSearch(ctx, category, criteria.FromPreference(pref))
		appendDistinct(matches)
		if len(merged) >= Cap {
			return merged
		}
	}

	if len(merged) < Cap && r.newest != nil {
		fresh, err := r.newest.Newest(ctx, Cap)
		if err != nil {
			r.logger.WithError(err).Warn("Failed to backfill recommendations with newest listings")
			return merged
		}
		appendDistinct(fresh)
	}

	return merged
}

// relaxedSearch runs the three relaxation steps for one preference and
// returns the first non-empty result. A failed step counts as no match and
// relaxation continues; once a step yields anything, later steps never run.
func (r *Recommender) relaxedSearch(ctx context.Context, category models.Category, strict criteria.Criteria) []models.Vehicle {
	steps := []criteria.Criteria{strict, strict.MakeOnly(), {}}

	var previous *criteria.Criteria
	for _, step := range steps {
		if previous != nil && step == *previous {
			continue
		}
		step := step
		previous = &step

		listings, err := r.searcher.SearchListings(ctx, category, step)
		if err != nil {
			r.logger.WithError(err).WithField("category", category).Warn("Recommendation query failed, relaxing further")
			continue
		}
		if len(listings) > 0 {
			return listings
		}
	}
	return nil
}
