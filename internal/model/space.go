package model

import "time"

// Location is a named site or building that owns spaces.
type Location struct {
	ID        uint64
	Name      string
	CreatedAt time.Time
}

// SpaceType classifies a reservable space.
type SpaceType string

const (
	SpaceRoom       SpaceType = "room"
	SpaceLab        SpaceType = "lab"
	SpaceAuditorium SpaceType = "auditorium"
)

// Valid reports whether t is one of the known space types.
func (t SpaceType) Valid() bool {
	switch t {
	case SpaceRoom, SpaceLab, SpaceAuditorium:
		return true
	}
	return false
}

// Limits shared by input validation and the schema's CHECK constraints.
const (
	MinFloor     = 0
	MaxFloor     = 40
	MinCapacity  = 1
	MaxCapacity  = 1000
	MaxNameLen   = 20
	MinHandleLen = 3
)

// Space mirrors the `spaces` table. LocationName is filled by joins and is
// not persisted on the row.
type Space struct {
	ID           uint64
	Name         string
	LocationID   uint64
	LocationName string
	Floor        int
	Capacity     int
	Type         SpaceType
	Available    bool
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
