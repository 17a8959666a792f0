package metric

import (
	"encoding/json"
	"fmt"
)

// nativeQty accepts either a bare number or {"qty": n, "units": "..."}.
type nativeQty struct {
	Qty   float64 `json:"qty"`
	Units string  `json:"units"`
}

func (q *nativeQty) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		q.Qty = f
		return nil
	}
	type plain nativeQty
	return json.Unmarshal(b, (*plain)(q))
}

type nativeRoutePoint struct {
	Lat                *float64 `json:"lat"`
	Lon                *float64 `json:"lon"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Altitude           *float64 `json:"altitude"`
	Timestamp          string   `json:"timestamp"`
	HorizontalAccuracy *float64 `json:"horizontalAccuracy"`
	Speed              *float64 `json:"speed"`
}

type nativeWorkout struct {
	Name               string             `json:"name"`
	Start              string             `json:"start"`
	End                string             `json:"end"`
	Source             string             `json:"source"`
	ActiveEnergyBurned *nativeQty         `json:"activeEnergyBurned"`
	TotalEnergy        *nativeQty         `json:"totalEnergy"`
	Distance           *nativeQty         `json:"distance"`
	AvgHeartRate       *nativeQty         `json:"avgHeartRate"`
	MaxHeartRate       *nativeQty         `json:"maxHeartRate"`
	Route              []nativeRoutePoint `json:"route"`
}

func decodeNativeWorkout(raw json.RawMessage) (*Workout, error) {
	var nw nativeWorkout
	if err := json.Unmarshal(raw, &nw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	start, err := ParseTimestamp(nw.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := ParseTimestamp(nw.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	w := &Workout{
		WorkoutType: ParseWorkoutType(nw.Name),
		StartedAt:   start,
		EndedAt:     end,
	}
	if nw.Source != "" {
		src := nw.Source
		w.SourceDevice = &src
	}
	energy := nw.ActiveEnergyBurned
	if energy == nil {
		energy = nw.TotalEnergy
	}
	if energy != nil {
		w.TotalEnergyKcal = floatPtr(toKcal(energy.Qty, energy.Units))
	}
	if nw.Distance != nil {
		w.DistanceMeters = floatPtr(toMeters(nw.Distance.Qty, nw.Distance.Units))
	}
	if nw.AvgHeartRate != nil {
		w.AvgHeartRate = intPtr(round(nw.AvgHeartRate.Qty))
	}
	if nw.MaxHeartRate != nil {
		w.MaxHeartRate = intPtr(round(nw.MaxHeartRate.Qty))
	}
	for i, rp := range nw.Route {
		p, err := rp.point()
		if err != nil {
			return nil, fmt.Errorf("route point %d: %w", i, err)
		}
		w.Route = append(w.Route, p)
	}
	return w, nil
}

func (rp *nativeRoutePoint) point() (RoutePoint, error) {
	lat, lon := rp.Latitude, rp.Longitude
	if lat == nil {
		lat = rp.Lat
	}
	if lon == nil {
		lon = rp.Lon
	}
	if lat == nil || lon == nil {
		return RoutePoint{}, fmt.Errorf("missing coordinates")
	}
	at, err := ParseTimestamp(rp.Timestamp)
	if err != nil {
		return RoutePoint{}, err
	}
	return RoutePoint{
		Latitude:           *lat,
		Longitude:          *lon,
		RecordedAt:         at,
		AltitudeMeters:     rp.Altitude,
		HorizontalAccuracy: rp.HorizontalAccuracy,
		SpeedMPS:           rp.Speed,
	}, nil
}
