package models

// Category identifies which vehicle catalog a listing belongs to. It is
// attached to every Vehicle at ingestion time so downstream code never has to
// infer the kind from which fields happen to be present.
type Category string

const (
	CategoryCar        Category = "car"
	CategoryMotorcycle Category = "motorcycle"
	CategoryTruck      Category = "truck"
)

// Valid reports whether c is one of the known vehicle categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCar, CategoryMotorcycle, CategoryTruck:
		return true
	}
	return false
}

// Endpoint returns the plural path segment used by the backend catalog,
// e.g. "cars" for CategoryCar.
func (c Category) Endpoint() string {
	return string(c) + "s"
}

// Vehicle is one sellable listing from the backend catalog. Field names match
// the backend's JSON. Optional fields are pointers: a nil value means the
// backend did not report it, which is rendered as unknown and must never be
// treated as zero.
type Vehicle struct {
	ID                string   `json:"_id"`
	Category          Category `json:"category,omitempty"`
	Make              string   `json:"make"`
	Model             string   `json:"model"`
	PriceEUR          *int     `json:"price_eur,omitempty"`
	FirstRegistration *int     `json:"first_registration,omitempty"`
	Mileage           *int     `json:"mileage,omitempty"`
	State             string   `json:"state,omitempty"`
	FuelType          string   `json:"fuel_type,omitempty"`
	Gearbox           string   `json:"gearbox,omitempty"`
	EngineCCM         *int     `json:"engine_ccm,omitempty"`
	EngineKW          *int     `json:"engine_kw,omitempty"`
	EngineHP          *int     `json:"engine_hp,omitempty"`
	Battery           *float64 `json:"battery,omitempty"`
	LoadCapacity      *int     `json:"load_capacity,omitempty"`
	ImageURL          string   `json:"image_url,omitempty"`
	Link              string   `json:"link,omitempty"`
}

// Preference is a saved search profile for one vehicle category, owned by a
// single user identity. Every field is optional; empty fields are stripped
// before the profile is sent to the backend.
type Preference struct {
	Make            string `json:"make,omitempty"`
	Model           string `json:"model,omitempty"`
	MaxPrice        *int   `json:"maxPrice,omitempty"`
	MinYear         *int   `json:"minYear,omitempty"`
	MaxMileage      *int   `json:"maxMileage,omitempty"`
	FuelType        string `json:"fuelType,omitempty"`
	Gearbox         string `json:"gearbox,omitempty"`
	MinEngineCCM    *int   `json:"minEngineCCM,omitempty"`
	MinEngineKW     *int   `json:"minEngineKW,omitempty"`
	BatteryCapacity *int   `json:"batteryCapacity,omitempty"`
}

// IsEmpty reports whether the preference has neither a make nor a model set.
// Such a profile matches everything and is rejected at save time.
func (p Preference) IsEmpty() bool {
	return p.Make == "" && p.Model == ""
}
