package metric

import "math"

const earthRadiusMeters = 6371008.8

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// RouteSummary holds the metrics derived from a workout's GPS points.
type RouteSummary struct {
	PointCount          int      `json:"point_count" db:"route_point_count"`
	DistanceMeters      float64  `json:"distance_meters" db:"route_distance_meters"`
	ElevationGainMeters *float64 `json:"elevation_gain_meters,omitempty" db:"elevation_gain_meters"`
	ElevationLossMeters *float64 `json:"elevation_loss_meters,omitempty" db:"elevation_loss_meters"`
	AltitudeMinMeters   *float64 `json:"altitude_min_meters,omitempty" db:"altitude_min_meters"`
	AltitudeMaxMeters   *float64 `json:"altitude_max_meters,omitempty" db:"altitude_max_meters"`
	MeanAccuracyMeters  *float64 `json:"mean_accuracy_meters,omitempty" db:"mean_accuracy_meters"`
}

// SummarizeRoute walks points in order. Elevation figures are only set when
// at least one point carries an altitude; accuracy likewise.
func SummarizeRoute(points []RoutePoint) RouteSummary {
	s := RouteSummary{PointCount: len(points)}
	var (
		gain, loss     float64
		minAlt, maxAlt float64
		lastAlt        *float64
		accSum         float64
		accN           int
	)
	for i, p := range points {
		if i > 0 {
			prev := points[i-1]
			s.DistanceMeters += Haversine(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
		}
		if p.AltitudeMeters != nil {
			alt := *p.AltitudeMeters
			if lastAlt == nil {
				minAlt, maxAlt = alt, alt
			} else {
				if d := alt - *lastAlt; d > 0 {
					gain += d
				} else {
					loss -= d
				}
				minAlt = math.Min(minAlt, alt)
				maxAlt = math.Max(maxAlt, alt)
			}
			lastAlt = &alt
		}
		if p.HorizontalAccuracy != nil {
			accSum += *p.HorizontalAccuracy
			accN++
		}
	}
	if lastAlt != nil {
		s.ElevationGainMeters = &gain
		s.ElevationLossMeters = &loss
		s.AltitudeMinMeters = &minAlt
		s.AltitudeMaxMeters = &maxAlt
	}
	if accN > 0 {
		mean := accSum / float64(accN)
		s.MeanAccuracyMeters = &mean
	}
	return s
}

// LineStringWKT renders points as a WKT LINESTRING in lon/lat order, or ""
// when there are fewer than two points.
func LineStringWKT(points []RoutePoint) string {
	if len(points) < 2 {
		return ""
	}
	buf := make([]byte, 0, 16+len(points)*24)
	buf = append(buf, "LINESTRING("...)
	for i, p := range points {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendFloat(buf, p.Longitude)
		buf = append(buf, ' ')
		buf = appendFloat(buf, p.Latitude)
	}
	return string(append(buf, ')'))
}
