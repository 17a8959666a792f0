package metric

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingData is returned for bodies without a "data" object.
var ErrMissingData = errors.New(`payload has no "data" object`)

// Item is a decoded metric and its position in the request.
type Item struct {
	Index  int
	Metric Metric
}

// Rejection is an entry that could not be decoded into a metric. Rejections
// are per-item and do not fail the request.
type Rejection struct {
	Variant string
	Index   int
	Message string
}

// Payload is a decoded ingest body. Items hold canonical metrics in request
// order, then records built from device-native metrics, then workouts.
// Index refers to the position within data.metrics or data.workouts.
type Payload struct {
	Items    []Item
	Rejected []Rejection
	// Skipped counts device-native identifiers with no mapping, by name.
	Skipped map[string]int
}

// Len is the number of metrics decoded, including rejected entries.
func (p *Payload) Len() int { return len(p.Items) + len(p.Rejected) }

type envelope struct {
	Data *struct {
		Metrics  []json.RawMessage `json:"metrics"`
		Workouts []json.RawMessage `json:"workouts"`
	} `json:"data"`
}

type peek struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	WorkoutType string          `json:"workout_type"`
	Data        json.RawMessage `json:"data"`
}

// Decode parses a canonical or device-native body. Only structural problems
// with the body as a whole are returned as errors.
func Decode(body []byte) (*Payload, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, ErrMissingData
	}
	p := &Payload{Skipped: map[string]int{}}
	nb := newNativeBuilder()
	for i, raw := range env.Data.Metrics {
		var head peek
		if err := json.Unmarshal(raw, &head); err != nil {
			p.Rejected = append(p.Rejected, Rejection{"Unknown", i, "metric is not an object"})
			continue
		}
		switch {
		case head.Type != "":
			decodeCanonical(p, i, head.Type, raw)
		case head.Name != "" && len(head.Data) > 0:
			nb.index = i
			nb.addMetric(raw)
		default:
			p.Rejected = append(p.Rejected, Rejection{"Unknown", i, `metric has neither "type" nor "name"`})
		}
	}
	p.Items = append(p.Items, nb.items...)
	p.Rejected = append(p.Rejected, nb.rejected...)
	for name, n := range nb.skipped {
		p.Skipped[name] += n
	}

	for i, raw := range env.Data.Workouts {
		var head peek
		if err := json.Unmarshal(raw, &head); err != nil {
			p.Rejected = append(p.Rejected, Rejection{string(KindWorkout), i, "workout is not an object"})
			continue
		}
		if head.Type != "" || head.WorkoutType != "" {
			decodeCanonical(p, i, string(KindWorkout), raw)
			continue
		}
		w, err := decodeNativeWorkout(raw)
		if err != nil {
			p.Rejected = append(p.Rejected, Rejection{string(KindWorkout), i, err.Error()})
			continue
		}
		p.Items = append(p.Items, Item{Index: i, Metric: w})
	}
	return p, nil
}

func decodeCanonical(p *Payload, index int, tag string, raw json.RawMessage) {
	kind, ok := ParseKind(tag)
	var m Metric
	if ok {
		m = New(kind)
	}
	if m == nil {
		p.Rejected = append(p.Rejected, Rejection{tag, index, fmt.Sprintf("unsupported metric type %q", tag)})
		return
	}
	if err := json.Unmarshal(raw, m); err != nil {
		p.Rejected = append(p.Rejected, Rejection{string(kind), index, "decode: " + err.Error()})
		return
	}
	p.Items = append(p.Items, Item{Index: index, Metric: m})
}

// Canonicalize returns the compact form of a JSON body, used for hashing.
func Canonicalize(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
