package results

import (
	"sort"

	"primerjalnik/server/internal/models"
)

// PageSize is the fixed number of listings shown per results page.
const PageSize = 20

// SortOrder selects how a fetched result set is ordered before pagination.
type SortOrder string

const (
	SortNone        SortOrder = ""
	SortPriceAsc    SortOrder = "price_asc"
	SortPriceDesc   SortOrder = "price_desc"
	SortMileageAsc  SortOrder = "mileage_asc"
	SortMileageDesc SortOrder = "mileage_desc"
)

// Valid reports whether the order is one of the supported values.
func (o SortOrder) Valid() bool {
	switch o {
	case SortNone, SortPriceAsc, SortPriceDesc, SortMileageAsc, SortMileageDesc:
		return true
	}
	return false
}

// Page is one slice of a sorted result set.
type Page struct {
	Items     []models.Vehicle `json:"items"`
	PageIndex int              `json:"page"`
	PageCount int              `json:"pageCount"`
	Total     int              `json:"total"`
}

// Sort returns a copy of the listings in the requested order. The sort is
// stable and SortNone preserves the input order. A missing price or mileage
// compares as 0 for ordering only; the stored value stays absent.
func Sort(listings []models.Vehicle, order SortOrder) []models.Vehicle {
	sorted := make([]models.Vehicle, len(listings))
	copy(sorted, listings)
	if order == SortNone {
		return sorted
	}

	key := func(v models.Vehicle) int {
		switch order {
		case SortPriceAsc, SortPriceDesc:
			if v.PriceEUR == nil {
				return 0
			}
			return *v.PriceEUR
		default:
			if v.Mileage == nil {
				return 0
			}
			return *v.Mileage
		}
	}

	descending := order == SortPriceDesc || order == SortMileageDesc
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return key(sorted[i]) > key(sorted[j])
		}
		return key(sorted[i]) < key(sorted[j])
	})
	return sorted
}

// PageCount returns ceil(total / PageSize).
func PageCount(total int) int {
	return (total + PageSize - 1) / PageSize
}

// Paginate slices one page out of the listings. The page index starts at 1
// and is clamped to the valid range, never wrapped; asking for page 0 of an
// empty set returns an empty page with no navigable pages.
func Paginate(listings []models.Vehicle, pageIndex int) Page {
	total := len(listings)
	count := PageCount(total)

	if count == 0 {
		return Page{Items: []models.Vehicle{}, PageIndex: 1, PageCount: 0, Total: 0}
	}

	if pageIndex < 1 {
		pageIndex = 1
	}
	if pageIndex > count {
		pageIndex = count
	}

	start := (pageIndex - 1) * PageSize
	end := start + PageSize
	if end > total {
		end = total
	}

	return Page{
		Items:     listings[start:end],
		PageIndex: pageIndex,
		PageCount: count,
		Total:     total,
	}
}

// Present sorts and paginates in one step.
func Present(listings []models.Vehicle, order SortOrder, pageIndex int) Page {
	return Paginate(Sort(listings, order), pageIndex)
}
