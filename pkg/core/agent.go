// pkg/core/agent.go
package core

import (
	"encoding/json"
	"fmt"
)

// Movement constants, in cells per tick.
const (
	CarSpeed       = 0.05
	CharacterSpeed = 0.015
)

// Walk-cycle displacement of a character sprite per animation frame.
const (
	CharacterPixelsPerFrameX = 13.0 / 58.0
	CharacterPixelsPerFrameY = 5.0 / 58.0
)

// CharacterType selects the pedestrian sprite set.
type CharacterType string

const (
	CharacterBanana CharacterType = "banana"
	CharacterApple  CharacterType = "apple"
)

// ParseCharacterType validates a character type from external input.
func ParseCharacterType(s string) (CharacterType, error) {
	switch CharacterType(s) {
	case CharacterBanana, CharacterApple:
		return CharacterType(s), nil
	default:
		return "", fmt.Errorf("unknown character type %q", s)
	}
}

// CarType selects the vehicle sprite set.
type CarType string

const (
	CarTruck1 CarType = "truck-1"
	CarTruck2 CarType = "truck-2"
	CarTruck3 CarType = "truck-3"
)

// ParseCarType validates a car type from external input.
func ParseCarType(s string) (CarType, error) {
	switch CarType(s) {
	case CarTruck1, CarTruck2, CarTruck3:
		return CarType(s), nil
	default:
		return "", fmt.Errorf("unknown car type %q", s)
	}
}

// Character is a pedestrian.
type Character struct {
	ID            string         `json:"id"`
	Position      GridCoordinate `json:"position"`
	Direction     Direction      `json:"direction"`
	Speed         float64        `json:"speed"`
	CharacterType CharacterType  `json:"characterType"`
}

// Car is a vehicle agent. A car is either building-bound (ParkedAtBuilding /
// DestinationBuilding) or zone-bound (ParkedAtZone / DestinationZone), never both.
type Car struct {
	ID                  string           `json:"id"`
	Position            GridCoordinate   `json:"position"`
	Direction           Direction        `json:"direction"`
	Speed               float64          `json:"speed"`
	Waiting             int              `json:"waiting"`
	CarType             CarType          `json:"carType"`
	IsParked            bool             `json:"isParked"`
	Path                []GridCoordinate `json:"path"`
	PathIndex           int              `json:"pathIndex"`
	ParkedAtBuilding    *BuildingOrigin  `json:"parkedAtBuilding,omitempty"`
	DestinationBuilding *BuildingOrigin  `json:"destinationBuilding,omitempty"`
	ParkedAtZone        *string          `json:"parkedAtZone,omitempty"`
	DestinationZone     *string          `json:"destinationZone,omitempty"`
}

// ClearPath drops any planned route.
func (c *Car) ClearPath() {
	c.Path = nil
	c.PathIndex = 0
}

// ClearBuildingPair drops building-bound parking state.
func (c *Car) ClearBuildingPair() {
	c.ParkedAtBuilding = nil
	c.DestinationBuilding = nil
}

// ClearZonePair drops zone-bound parking state.
func (c *Car) ClearZonePair() {
	c.ParkedAtZone = nil
	c.DestinationZone = nil
}

// ZoneBound reports whether the car is managed by zone parking.
func (c *Car) ZoneBound() bool {
	return c.ParkedAtZone != nil || c.DestinationZone != nil
}

// HasPath reports whether the car has route steps left to follow.
func (c *Car) HasPath() bool {
	return c.PathIndex < len(c.Path)
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// TruckStatus is the backend-reported activity of a fleet truck.
type TruckStatus string

const (
	TruckIdle       TruckStatus = "IDLE"
	TruckServing    TruckStatus = "SERVING"
	TruckMoving     TruckStatus = "MOVING"
	TruckRestocking TruckStatus = "RESTOCKING"
)

// ParseTruckStatus validates a status string from the backend.
func ParseTruckStatus(s string) (TruckStatus, error) {
	switch TruckStatus(s) {
	case TruckIdle, TruckServing, TruckMoving, TruckRestocking:
		return TruckStatus(s), nil
	default:
		return "", fmt.Errorf("unknown truck status %q", s)
	}
}

// UnmarshalJSON rejects statuses outside the closed set.
func (s *TruckStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTruckStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
