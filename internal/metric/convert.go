package metric

import (
	"strconv"
	"strings"
)

func appendFloat(b []byte, f float64) []byte {
	return strconv.AppendFloat(b, f, 'f', -1, 64)
}

// Unit conversions applied to device-native quantities. Unknown units pass
// through unchanged.

func toKilograms(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "lb", "lbs", "pound", "pounds":
		return v * 0.45359237
	case "g":
		return v / 1000
	case "st":
		return v * 6.35029318
	}
	return v
}

func toCentimeters(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "in", "inch", "inches":
		return v * 2.54
	case "ft":
		return v * 30.48
	case "m":
		return v * 100
	case "mm":
		return v / 10
	}
	return v
}

func toMeters(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "km":
		return v * 1000
	case "mi", "mile", "miles":
		return v * 1609.344
	case "ft":
		return v * 0.3048
	case "yd":
		return v * 0.9144
	}
	return v
}

func toCelsius(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "degf", "°f", "f", "fahrenheit":
		return (v - 32) * 5 / 9
	case "k":
		return v - 273.15
	}
	return v
}

func toMgDl(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "mmol/l", "mmol<180.1558800000541>/l":
		return v * 18.0156
	}
	return v
}

func toKcal(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "kj":
		return v / 4.184
	case "cal":
		return v / 1000
	}
	return v
}

func toMinutes(v float64, unit string) float64 {
	switch normUnit(unit) {
	case "s", "sec", "seconds":
		return v / 60
	case "hr", "h", "hours":
		return v * 60
	}
	return v
}

// toPercent lifts fractional readings such as SpO2 0.97 to 97.
func toPercent(v float64) float64 {
	if v <= 1 {
		return v * 100
	}
	return v
}

func normUnit(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
