package model

import "time"

// FacilityStatus is maintained by exco members. Maintenance makes every
// slot unavailable.
type FacilityStatus string

const (
	FacilityAvailable   FacilityStatus = "available"
	FacilityBooked      FacilityStatus = "booked"
	FacilityMaintenance FacilityStatus = "maintenance"
)

func (s FacilityStatus) Valid() bool {
	switch s {
	case FacilityAvailable, FacilityBooked, FacilityMaintenance:
		return true
	}
	return false
}

// Facility is a bookable venue such as a court or a field.
//
// Fields:
//  ID       – facilities.id
//  Name     – display name
//  Type     – free-form kind (court, field, hall)
//  Location – where the venue is on campus
//  Capacity – maximum headcount
//  Status   – see FacilityStatus
type Facility struct {
	ID        uint64
	Name      string
	Type      string
	Location  string
	Capacity  int
	Status    FacilityStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
