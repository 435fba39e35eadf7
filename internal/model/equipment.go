package model

import "time"

// Equipment is a countable pool of identical items.
// The ledger keeps 0 <= QuantityAvailable <= QuantityTotal - QuantityDamaged.
type Equipment struct {
	ID                uint64
	Name              string
	Category          string
	QuantityTotal     int
	QuantityAvailable int
	QuantityDamaged   int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Usable is the ceiling for QuantityAvailable.
func (e Equipment) Usable() int { return e.QuantityTotal - e.QuantityDamaged }

type DamageStatus string

const (
	DamageReported DamageStatus = "reported"
	DamageResolved DamageStatus = "resolved"
)

type DamageSeverity string

const (
	SeverityLow    DamageSeverity = "low"
	SeverityMedium DamageSeverity = "medium"
	SeverityHigh   DamageSeverity = "high"
)

func (s DamageSeverity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Resolution decides where damaged units go once a report is closed.
type Resolution string

const (
	// ResolutionRepaired returns the units to the available pool.
	ResolutionRepaired Resolution = "repaired"
	// ResolutionWrittenOff removes the units from the total.
	ResolutionWrittenOff Resolution = "written_off"
)

func (r Resolution) Valid() bool {
	return r == ResolutionRepaired || r == ResolutionWrittenOff
}

// DamageReport records units taken out of circulation.
type DamageReport struct {
	ID              uint64
	EquipmentID     uint64
	ReporterID      uint64
	BookingID       *uint64
	QuantityDamaged int
	Description     string
	Severity        DamageSeverity
	Evidence        string
	Status          DamageStatus
	ResolvedBy      *uint64
	ResolvedAt      *time.Time
	Resolution      *Resolution
	CreatedAt       time.Time
}
