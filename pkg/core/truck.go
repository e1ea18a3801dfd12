// pkg/core/truck.go
package core

import "time"

// TruckState mirrors one fleet truck as reported by the backend.
// The local simulation never writes back to it.
type TruckState struct {
	ID              string      `json:"id"`
	Status          TruckStatus `json:"status"`
	CurrentZone     string      `json:"current_zone"`
	DestinationZone *string     `json:"destination_zone"`
	// ArrivalTime is carried as reported. Its unit belongs to the backend.
	ArrivalTime     float64     `json:"arrival_time"`
}

// TruckSnapshot is one consistent batch of truck states from the feed.
type TruckSnapshot struct {
	Trucks     []TruckState `json:"trucks"`
	ReceivedAt time.Time    `json:"receivedAt"`
}
