package entities

// Canonical attribute names written by the enrichment jobs.
const (
	AttributeCostOfLiving  = "cost_of_living"
	AttributeClimate       = "climate"
	AttributeSafety        = "safety"
	AttributeUrbanGreenery = "urban_greenery"
	AttributeAmenities     = "amenities"
	AttributePublicTransit = "public_transit"
	AttributeAirQuality    = "air_quality"
	AttributeInternetSpeed = "internet_speed"
)

// City is seeded reference data; the API never writes it.
type City struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"not null;index" json:"name"`
	Country    string          `gorm:"not null;index" json:"country"`
	GeonameID  *string         `gorm:"uniqueIndex" json:"geoname_id,omitempty"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
	Attributes []CityAttribute `gorm:"constraint:OnDelete:CASCADE" json:"attributes"`
}

// CityAttribute is an externally computed metric for a city. NormalizedScore is in [0,1].
type CityAttribute struct {
	ID              uint     `gorm:"primaryKey" json:"-"`
	CityID          uint     `gorm:"not null;uniqueIndex:uq_city_attribute" json:"-"`
	AttributeName   string   `gorm:"not null;uniqueIndex:uq_city_attribute;index" json:"attribute_name"`
	RawValue        *float64 `json:"raw_value"`
	NormalizedScore float64  `gorm:"not null;default:0" json:"normalized_score"`
}
