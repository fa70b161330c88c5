package handoff

import (
	"primerjalnik/server/internal/criteria"
	"primerjalnik/server/internal/models"
	"primerjalnik/server/internal/store"
)

const (
	keySearchParams = "searchParams"
	keySearchType   = "searchType"
	keyAIResults    = "aiResults"
)

// Channel is the short-lived handoff between search submission and the
// results view. A submission writes the criteria and the active category;
// the results view consumes them exactly once, after which the channel is
// cleared.
type Channel struct {
	local *store.Local
}

func NewChannel(local *store.Local) *Channel {
	return &Channel{local: local}
}

// PutSearch persists the submitted criteria and category.
func (c *Channel) PutSearch(category models.Category, crit criteria.Criteria) error {
	if err := c.local.SetJSON(keySearchParams, crit); err != nil {
		return err
	}
	return c.local.Set(keySearchType, string(category))
}

// TakeSearch consumes the pending submission. The second return value is
// false when no search is pending.
func (c *Channel) TakeSearch() (models.Category, criteria.Criteria, bool, error) {
	var crit criteria.Criteria
	ok, err := c.local.GetJSON(keySearchParams, &crit)
	if err != nil || !ok {
		return "", criteria.Criteria{}, false, err
	}

	rawType, _, err := c.local.Get(keySearchType)
	if err != nil {
		return "", criteria.Criteria{}, false, err
	}
	category := models.Category(rawType)
	if !category.Valid() {
		category = models.CategoryCar
	}

	if err := c.local.Delete(keySearchParams); err != nil {
		return "", criteria.Criteria{}, false, err
	}
	if err := c.local.Delete(keySearchType); err != nil {
		return "", criteria.Criteria{}, false, err
	}

	return category, crit, true, nil
}

// PutAIResults persists listings returned by the AI search for the results
// view to pick up.
func (c *Channel) PutAIResults(listings []models.Vehicle) error {
	return c.local.SetJSON(keyAIResults, listings)
}

// TakeAIResults consumes pending AI search results, if any.
func (c *Channel) TakeAIResults() ([]models.Vehicle, bool, error) {
	var listings []models.Vehicle
	ok, err := c.local.GetJSON(keyAIResults, &listings)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := c.local.Delete(keyAIResults); err != nil {
		return nil, false, err
	}
	return listings, true, nil
}
