package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// ParsePlace parses [x, y, kind, width?, height?].
func (p *Parser) ParsePlace(data []string) (PlaceRequest, error) {
	var req PlaceRequest
	if err := need(data, 3, ":PLACE:"); err != nil {
		return req, err
	}
	data = clean(data)

	x, y, err := cell(data[0], data[1])
	if err != nil {
		return req, err
	}
	req.X, req.Y = x, y

	kind, err := core.ParseTileKind(data[2])
	if err != nil {
		return req, err
	}
	req.Kind = kind

	if len(data) >= 5 {
		w, err := parseUintFromFloat(data[3])
		if err != nil {
			return req, fmt.Errorf("error parsing width: %w", err)
		}
		h, err := parseUintFromFloat(data[4])
		if err != nil {
			return req, fmt.Errorf("error parsing height: %w", err)
		}
		req.Footprint = core.Footprint{Width: int(w), Height: int(h)}
	} else if len(data) == 4 {
		p.logger.Warn("Ignoring width without height", "command", ":PLACE:", "width", data[3])
	}
	return req, nil
}

// ParsePlaceBuilding parses [x, y, buildingId, orientation?]. A missing
// orientation is core.DefaultDirection.
func (p *Parser) ParsePlaceBuilding(data []string) (PlaceBuildingRequest, error) {
	var req PlaceBuildingRequest
	if err := need(data, 3, ":PLACE:BUILDING:"); err != nil {
		return req, err
	}
	data = clean(data)

	x, y, err := cell(data[0], data[1])
	if err != nil {
		return req, err
	}
	req.X, req.Y = x, y

	if data[2] == "" {
		return req, errors.New("empty building id")
	}
	req.BuildingID = data[2]

	req.Orientation = core.DefaultDirection
	if len(data) >= 4 && data[3] != "" {
		dir, err := core.ParseDirection(strings.ToLower(data[3]))
		if err != nil {
			return req, err
		}
		req.Orientation = dir
	}
	return req, nil
}

// ParseCell parses [x, y].
func (p *Parser) ParseCell(data []string) (CellRequest, error) {
	var req CellRequest
	if err := need(data, 2, "cell"); err != nil {
		return req, err
	}
	data = clean(data)

	x, y, err := cell(data[0], data[1])
	if err != nil {
		return req, err
	}
	req.X, req.Y = x, y
	return req, nil
}

// ParseAgentID parses [id].
func (p *Parser) ParseAgentID(data []string) (string, error) {
	if err := need(data, 1, "agent"); err != nil {
		return "", err
	}
	id := clean(data)[0]
	if id == "" {
		return "", errors.New("empty agent id")
	}
	return id, nil
}

func optionalDirection(data []string, i int) (core.Direction, error) {
	if len(data) <= i || data[i] == "" {
		return core.DirectionDown, nil
	}
	return core.ParseDirection(strings.ToLower(data[i]))
}

// ParseSpawnCar parses [id, x, y, carType?, direction?] into a car at rest.
func (p *Parser) ParseSpawnCar(data []string) (core.Car, error) {
	var car core.Car
	if err := need(data, 3, ":SPAWN:CAR:"); err != nil {
		return car, err
	}
	data = clean(data)

	if data[0] == "" {
		return car, errors.New("empty agent id")
	}
	car.ID = data[0]

	x, y, err := point(data[1], data[2])
	if err != nil {
		return car, err
	}
	car.Position = core.GridCoordinate{X: x, Y: y}

	car.CarType = core.CarTruck1
	if len(data) >= 4 && data[3] != "" {
		if car.CarType, err = core.ParseCarType(data[3]); err != nil {
			return car, err
		}
	}
	if car.Direction, err = optionalDirection(data, 4); err != nil {
		return car, err
	}
	car.Speed = core.CarSpeed
	return car, nil
}

// ParseSpawnCharacter parses [id, x, y, characterType?, direction?].
func (p *Parser) ParseSpawnCharacter(data []string) (core.Character, error) {
	var ch core.Character
	if err := need(data, 3, ":SPAWN:CHARACTER:"); err != nil {
		return ch, err
	}
	data = clean(data)

	if data[0] == "" {
		return ch, errors.New("empty agent id")
	}
	ch.ID = data[0]

	x, y, err := point(data[1], data[2])
	if err != nil {
		return ch, err
	}
	ch.Position = core.GridCoordinate{X: x, Y: y}

	ch.CharacterType = core.CharacterBanana
	if len(data) >= 4 && data[3] != "" {
		if ch.CharacterType, err = core.ParseCharacterType(data[3]); err != nil {
			return ch, err
		}
	}
	if ch.Direction, err = optionalDirection(data, 4); err != nil {
		return ch, err
	}
	ch.Speed = core.CharacterSpeed
	return ch, nil
}

// ParseSendCar parses [id, x, y].
func (p *Parser) ParseSendCar(data []string) (SendCarRequest, error) {
	var req SendCarRequest
	if err := need(data, 3, ":SEND:CAR:"); err != nil {
		return req, err
	}
	data = clean(data)

	if data[0] == "" {
		return req, errors.New("empty agent id")
	}
	req.ID = data[0]
	x, y, err := cell(data[1], data[2])
	if err != nil {
		return req, err
	}
	req.X, req.Y = x, y
	return req, nil
}

// DecodeTrucks decodes a fleet report: either a JSON array of truck states or
// an object {"trucks": [...]}. Truck IDs must be unique within one report.
func DecodeTrucks(raw []byte, receivedAt time.Time) (core.TruckSnapshot, error) {
	snap := core.TruckSnapshot{ReceivedAt: receivedAt}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return snap, errors.New("empty truck report")
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &snap.Trucks); err != nil {
			return snap, fmt.Errorf("error decoding trucks: %w", err)
		}
	} else {
		var wrapped struct {
			Trucks []core.TruckState `json:"trucks"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return snap, fmt.Errorf("error decoding trucks: %w", err)
		}
		snap.Trucks = wrapped.Trucks
	}

	return snap, ValidateTrucks(snap.Trucks)
}

// ValidateTrucks checks that every truck in one report has a unique, non-empty id.
func ValidateTrucks(trucks []core.TruckState) error {
	seen := make(map[string]struct{}, len(trucks))
	for _, t := range trucks {
		if t.ID == "" {
			return errors.New("truck without id")
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate truck %q in report", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// ParseTrucks decodes [json] from a command.
func (p *Parser) ParseTrucks(data []string) (core.TruckSnapshot, error) {
	if err := need(data, 1, ":TRUCKS:"); err != nil {
		return core.TruckSnapshot{}, err
	}
	return DecodeTrucks([]byte(data[0]), time.Now().UTC())
}

// ParseLighting parses [lighting].
func (p *Parser) ParseLighting(data []string) (core.LightingType, error) {
	if err := need(data, 1, ":SETTINGS:LIGHTING:"); err != nil {
		return "", err
	}
	return core.ParseLightingType(strings.ToLower(clean(data)[0]))
}

// ParseVisual parses [blueness, contrast, saturation, brightness]. Values are
// clamped into range.
func (p *Parser) ParseVisual(data []string) (core.VisualSettings, error) {
	var v core.VisualSettings
	if err := need(data, 4, ":SETTINGS:VISUAL:"); err != nil {
		return v, err
	}
	data = clean(data)

	fields := []*float64{&v.Blueness, &v.Contrast, &v.Saturation, &v.Brightness}
	names := []string{"blueness", "contrast", "saturation", "brightness"}
	for i, f := range fields {
		n, err := strconv.ParseFloat(data[i], 64)
		if err != nil {
			return v, fmt.Errorf("error parsing %s: %w", names[i], err)
		}
		*f = n
	}
	clamped := v.Clamp()
	if clamped != v {
		p.logger.Debug("Clamped visual settings", "requested", v, "applied", clamped)
	}
	return clamped, nil
}
