package criteria

import (
	"net/url"
	"strconv"

	"primerjalnik/server/internal/models"
)

// PowerUnit is the unit a user picked for the engine power filter. The
// backend only understands kW, so HP values are converted on the way out.
type PowerUnit string

const (
	UnitKW PowerUnit = "kW"
	UnitHP PowerUnit = "HP"
)

// kwPerHP is the fixed conversion factor between horsepower and kilowatts,
// used consistently in both directions.
const kwPerHP = 0.735

// HPToKW converts horsepower to kilowatts, rounded to the nearest integer.
func HPToKW(hp int) int {
	return int(float64(hp)*kwPerHP + 0.5)
}

// KWToHP converts kilowatts to horsepower, rounded to the nearest integer.
func KWToHP(kw int) int {
	return int(float64(kw)/kwPerHP + 0.5)
}

// Criteria holds the filter values a user selected before querying. Values
// are kept as the raw form strings; an empty string means the filter was not
// set and must be excluded from any outgoing query.
type Criteria struct {
	Make             string    `json:"make,omitempty"`
	Model            string    `json:"model,omitempty"`
	YearFrom         string    `json:"yearFrom,omitempty"`
	MileageFrom      string    `json:"mileageFrom,omitempty"`
	MileageTo        string    `json:"mileageTo,omitempty"`
	FuelType         string    `json:"fuel_type,omitempty"`
	Gearbox          string    `json:"shifter_type,omitempty"`
	PowerUnit        PowerUnit `json:"powerUnit,omitempty"`
	PowerFrom        string    `json:"powerFrom,omitempty"`
	PowerTo          string    `json:"powerTo,omitempty"`
	PriceFrom        string    `json:"priceFrom,omitempty"`
	PriceTo          string    `json:"priceTo,omitempty"`
	EngineCcmFrom    string    `json:"engineCcmFrom,omitempty"`
	EngineCcmTo      string    `json:"engineCcmTo,omitempty"`
	LoadCapacityFrom string    `json:"loadCapacityFrom,omitempty"`
	LoadCapacityTo   string    `json:"loadCapacityTo,omitempty"`
}

// IsZero reports whether no filter at all is set.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// MakeOnly returns a copy of the criteria reduced to just the make filter.
// Used by the recommendation relaxation steps.
func (c Criteria) MakeOnly() Criteria {
	return Criteria{Make: c.Make}
}

// Values renders the criteria as backend query parameters. Only fields the
// user actually set are emitted; blank fields are dropped entirely because
// the backend treats an empty string as a filter, not as "no filter".
// Derived keys: yearFrom is forwarded as a first_registration lower bound and
// power bounds are transmitted as engineKwFrom/engineKwTo, converted from HP
// when that unit was selected.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}

	set("make", c.Make)
	set("model", c.Model)
	set("mileageFrom", c.MileageFrom)
	set("mileageTo", c.MileageTo)
	set("fuel_type", c.FuelType)
	set("shifter_type", c.Gearbox)
	set("priceFrom", c.PriceFrom)
	set("priceTo", c.PriceTo)
	set("engineCcmFrom", c.EngineCcmFrom)
	set("engineCcmTo", c.EngineCcmTo)
	set("loadCapacityFrom", c.LoadCapacityFrom)
	set("loadCapacityTo", c.LoadCapacityTo)

	if c.YearFrom != "" {
		v.Set("yearFrom", c.YearFrom)
		v.Set("first_registration", c.YearFrom)
	}

	set("engineKwFrom", c.powerInKW(c.PowerFrom))
	set("engineKwTo", c.powerInKW(c.PowerTo))

	return v
}

// powerInKW returns the power bound in kW. Values chosen in HP are converted;
// anything that does not parse is passed through untouched so the backend can
// reject it.
func (c Criteria) powerInKW(raw string) string {
	if raw == "" {
		return ""
	}
	if c.PowerUnit != UnitHP {
		return raw
	}
	hp, err := strconv.Atoi(raw)
	if err != nil {
		return raw
	}
	return strconv.Itoa(HPToKW(hp))
}

// FromPreference builds query criteria out of a saved search profile. Bounds
// flip direction where the profile stores a maximum (maxPrice, maxMileage)
// and power is always stored in kW.
func FromPreference(p models.Preference) Criteria {
	c := Criteria{
		Make:     p.Make,
		Model:    p.Model,
		FuelType: p.FuelType,
		Gearbox:  p.Gearbox,
	}
	if p.MaxPrice != nil {
		c.PriceTo = strconv.Itoa(*p.MaxPrice)
	}
	if p.MinYear != nil {
		c.YearFrom = strconv.Itoa(*p.MinYear)
	}
	if p.MaxMileage != nil {
		c.MileageTo = strconv.Itoa(*p.MaxMileage)
	}
	if p.MinEngineKW != nil {
		c.PowerUnit = UnitKW
		c.PowerFrom = strconv.Itoa(*p.MinEngineKW)
	}
	if p.MinEngineCCM != nil {
		c.EngineCcmFrom = strconv.Itoa(*p.MinEngineCCM)
	}
	return c
}
