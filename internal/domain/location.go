package domain

// Location is a named geographic point used as a search origin or destination.
// Reference data owned by the backend; this service only reads it.
type Location struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	AverageTransitMinutes int    `json:"average_transit_minutes"`
}

// Station is a boarding point that belongs to a Location.
type Station struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LocationName string `json:"location_name"`
}
