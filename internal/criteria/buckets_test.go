package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"primerjalnik/server/internal/models"
)

func TestPowerRanges_KW(t *testing.T) {
	ranges := PowerRanges(models.CategoryCar, UnitKW)

	assert.Equal(t, Range{20, 50}, ranges[0])
	assert.Equal(t, Range{201, 300}, ranges[len(ranges)-1])
}

func TestPowerRanges_HPRecomputedFromKW(t *testing.T) {
	kw := PowerRanges(models.CategoryCar, UnitKW)
	hp := PowerRanges(models.CategoryCar, UnitHP)

	assert.Len(t, hp, len(kw))
	for i := range kw {
		assert.Equal(t, KWToHP(kw[i].From), hp[i].From)
		assert.Equal(t, KWToHP(kw[i].To), hp[i].To)
	}

	// Spot-check against the fixed conversion factor
	assert.Equal(t, Range{27, 68}, hp[0])
	assert.Equal(t, Range{273, 408}, hp[len(hp)-1])
}

func TestPowerRanges_MotorcycleDiffersFromCar(t *testing.T) {
	moto := PowerRanges(models.CategoryMotorcycle, UnitKW)
	car := PowerRanges(models.CategoryCar, UnitKW)

	assert.NotEqual(t, car, moto)
	assert.Equal(t, Range{7, 22}, moto[0])
}

func TestMileageRanges_PerCategory(t *testing.T) {
	assert.Len(t, MileageRanges(models.CategoryCar), 7)
	assert.Len(t, MileageRanges(models.CategoryMotorcycle), 5)

	truck := MileageRanges(models.CategoryTruck)
	assert.Equal(t, Range{800000, 1000000}, truck[len(truck)-1])
}

func TestPricePoints_PerCategory(t *testing.T) {
	car := PricePoints(models.CategoryCar)
	moto := PricePoints(models.CategoryMotorcycle)

	assert.Equal(t, 300000, car[len(car)-1])
	assert.Equal(t, 20000, moto[len(moto)-1])
}

func TestLoadCapacityRanges(t *testing.T) {
	ranges := LoadCapacityRanges()
	assert.Equal(t, Range{0, 3000}, ranges[0])
	assert.Equal(t, Range{16001, 20000}, ranges[len(ranges)-1])
}

func TestYears_NewestFirst(t *testing.T) {
	years := Years()

	assert.Equal(t, time.Now().Year(), years[0])
	assert.Equal(t, 1900, years[len(years)-1])
}
