package criteria

import (
	"time"

	"primerjalnik/server/internal/models"
)

// Range is one discrete bucket a user can pick instead of typing a free
// value. Bucketing bounds the filter cardinality and keeps the price/power
// distribution readable in the form.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

var carPowerKW = []Range{{20, 50}, {51, 75}, {76, 100}, {101, 150}, {151, 200}, {201, 300}}

var motorcyclePowerKW = []Range{{7, 22}, {23, 50}, {51, 75}, {76, 110}}

var mileageBuckets = map[models.Category][]Range{
	models.CategoryCar: {
		{0, 5000}, {5000, 10000}, {10000, 20000}, {20000, 50000},
		{50000, 100000}, {100000, 150000}, {150000, 200000},
	},
	models.CategoryMotorcycle: {
		{0, 5000}, {5000, 10000}, {10000, 20000}, {20000, 50000}, {50000, 100000},
	},
	models.CategoryTruck: {
		{0, 50000}, {50000, 100000}, {100000, 200000}, {200000, 400000},
		{400000, 600000}, {600000, 800000}, {800000, 1000000},
	},
}

var priceBuckets = map[models.Category][]int{
	models.CategoryCar:        {500, 2000, 5000, 10000, 20000, 30000, 50000, 75000, 100000, 150000, 200000, 300000},
	models.CategoryMotorcycle: {500, 1000, 2000, 4000, 7000, 10000, 15000, 20000},
	models.CategoryTruck:      {1000, 5000, 10000, 20000, 50000, 75000, 100000, 150000, 200000},
}

var engineCcmBuckets = []Range{
	{500, 800}, {801, 1200}, {1201, 1600}, {1601, 2000},
	{2001, 2500}, {2501, 3000}, {3001, 4000}, {4001, 5000},
}

var loadCapacityBuckets = []Range{
	{0, 3000}, {3001, 6000}, {6001, 9000}, {9001, 12000}, {12001, 16000}, {16001, 20000},
}

// PowerRanges returns the power buckets for a category in the requested
// unit. HP boundaries are recomputed from the kW buckets through the fixed
// conversion factor so both unit views describe the same intervals.
func PowerRanges(category models.Category, unit PowerUnit) []Range {
	var kw []Range
	switch category {
	case models.CategoryMotorcycle:
		kw = motorcyclePowerKW
	default:
		kw = carPowerKW
	}
	if unit != UnitHP {
		return kw
	}
	hp := make([]Range, len(kw))
	for i, r := range kw {
		hp[i] = Range{From: KWToHP(r.From), To: KWToHP(r.To)}
	}
	return hp
}

// MileageRanges returns the odometer buckets for a category.
func MileageRanges(category models.Category) []Range {
	return mileageBuckets[category]
}

// PricePoints returns the price boundaries (euros) for a category.
func PricePoints(category models.Category) []int {
	return priceBuckets[category]
}

// EngineCcmRanges returns the displacement buckets (cars and trucks).
func EngineCcmRanges() []Range {
	return engineCcmBuckets
}

// LoadCapacityRanges returns the truck load capacity buckets (kilograms).
func LoadCapacityRanges() []Range {
	return loadCapacityBuckets
}

// Years lists selectable first-registration years, newest first.
func Years() []int {
	current := time.Now().Year()
	years := make([]int, 0, current-1899)
	for y := current; y >= 1900; y-- {
		years = append(years, y)
	}
	return years
}
