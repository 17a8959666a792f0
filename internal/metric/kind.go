// Package metric defines the closed set of health metric variants accepted by
// the ingest pipeline, their validation rules and natural keys, and the
// decoders for canonical and device-native payloads.
package metric

import "strings"

// Kind discriminates the HealthMetric variants. Its value is the canonical
// "type" tag on the wire.
type Kind string

const (
	KindHeartRate       Kind = "HeartRate"
	KindBloodPressure   Kind = "BloodPressure"
	KindSleep           Kind = "Sleep"
	KindActivity        Kind = "Activity"
	KindBodyMeasurement Kind = "BodyMeasurement"
	KindWorkout         Kind = "Workout"
	KindWorkoutRoute    Kind = "WorkoutRoute"
	KindMetabolic       Kind = "Metabolic"
	KindRespiratory     Kind = "Respiratory"
	KindBloodGlucose    Kind = "BloodGlucose"
	KindNutrition       Kind = "Nutrition"
	KindEnvironmental   Kind = "Environmental"
	KindAudioExposure   Kind = "AudioExposure"
	KindMindfulness     Kind = "Mindfulness"
	KindMentalHealth    Kind = "MentalHealth"
	KindSymptom         Kind = "Symptom"
	KindHeartRateEvent  Kind = "HeartRateEvent"
	KindSafetyEvent     Kind = "SafetyEvent"
)

// Kinds lists every variant in processing order. Workout precedes
// WorkoutRoute so route points always follow their parent rows.
var Kinds = []Kind{
	KindHeartRate,
	KindBloodPressure,
	KindSleep,
	KindActivity,
	KindBodyMeasurement,
	KindMetabolic,
	KindRespiratory,
	KindBloodGlucose,
	KindNutrition,
	KindEnvironmental,
	KindAudioExposure,
	KindMindfulness,
	KindMentalHealth,
	KindSymptom,
	KindHeartRateEvent,
	KindSafetyEvent,
	KindWorkout,
	KindWorkoutRoute,
}

type kindInfo struct {
	slug       string
	table      string
	timeColumn string
}

var kindInfos = map[Kind]kindInfo{
	KindHeartRate:       {"heart_rate", "heart_rate_metrics", "recorded_at"},
	KindBloodPressure:   {"blood_pressure", "blood_pressure_metrics", "recorded_at"},
	KindSleep:           {"sleep", "sleep_metrics", "sleep_start"},
	KindActivity:        {"activity", "activity_metrics", "recorded_date"},
	KindBodyMeasurement: {"body_measurement", "body_measurements", "recorded_at"},
	KindWorkout:         {"workout", "workouts", "started_at"},
	KindWorkoutRoute:    {"workout_route", "workout_route_points", "recorded_at"},
	KindMetabolic:       {"metabolic", "metabolic_metrics", "recorded_at"},
	KindRespiratory:     {"respiratory", "respiratory_metrics", "recorded_at"},
	KindBloodGlucose:    {"blood_glucose", "blood_glucose_metrics", "recorded_at"},
	KindNutrition:       {"nutrition", "nutrition_metrics", "recorded_at"},
	KindEnvironmental:   {"environmental", "environmental_metrics", "recorded_at"},
	KindAudioExposure:   {"audio_exposure", "audio_exposure_metrics", "recorded_at"},
	KindMindfulness:     {"mindfulness", "mindfulness_metrics", "recorded_at"},
	KindMentalHealth:    {"mental_health", "mental_health_metrics", "recorded_at"},
	KindSymptom:         {"symptom", "symptoms", "recorded_at"},
	KindHeartRateEvent:  {"heart_rate_event", "heart_rate_events", "event_occurred_at"},
	KindSafetyEvent:     {"safety_event", "safety_events", "recorded_at"},
}

// Slug is the snake_case name used in stats keys and URLs.
func (k Kind) Slug() string { return kindInfos[k].slug }

// Table is the storage table holding rows of this variant.
func (k Kind) Table() string { return kindInfos[k].table }

// TimeColumn is the partition and range-query column of the variant's table.
func (k Kind) TimeColumn() string { return kindInfos[k].timeColumn }

func (k Kind) String() string { return string(k) }

// ParseKind accepts the canonical tag ("HeartRate"), the slug ("heart_rate")
// or its kebab form ("heart-rate").
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	if _, ok := kindInfos[Kind(s)]; ok {
		return Kind(s), true
	}
	norm := strings.ReplaceAll(strings.ToLower(s), "-", "_")
	for k, info := range kindInfos {
		if info.slug == norm || strings.ToLower(string(k)) == norm {
			return k, true
		}
	}
	return "", false
}

// PartitionedTables lists the monthly partitioned tables. Workouts and their
// route points are plain tables so the points can reference their parent.
func PartitionedTables() []string {
	out := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		if k == KindWorkout || k == KindWorkoutRoute {
			continue
		}
		out = append(out, k.Table())
	}
	return out
}
