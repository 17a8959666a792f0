package batch

import (
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
)

// table describes how one variant is upserted: column order, the natural key
// used as conflict target, and the per-row bind arguments in column order.
// rowBytes is the memory estimate for one decoded row plus its arguments.
type table[T metric.Metric] struct {
	kind     metric.Kind
	columns  []string
	conflict []string
	rowBytes int
	args     func(T) []any
}

func (t *table[T]) params() int { return len(t.columns) }

func enumPtr[E ~string](p *E) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

var heartRates = &table[*metric.HeartRate]{
	kind: metric.KindHeartRate,
	columns: []string{"user_id", "recorded_at", "heart_rate", "resting_heart_rate", "heart_rate_variability",
		"walking_heart_rate_average", "heart_rate_recovery_one_minute", "vo2_max_ml_kg_min", "context", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 320,
	args: func(m *metric.HeartRate) []any {
		return []any{m.UserID, m.RecordedAt, m.HeartRate, m.RestingHeartRate, m.HeartRateVariability,
			m.WalkingHeartRateAverage, m.HeartRateRecoveryOneMinute, m.VO2Max, enumPtr(m.Context), m.SourceDevice}
	},
}

var bloodPressures = &table[*metric.BloodPressure]{
	kind:     metric.KindBloodPressure,
	columns:  []string{"user_id", "recorded_at", "systolic", "diastolic", "pulse", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 224,
	args: func(m *metric.BloodPressure) []any {
		return []any{m.UserID, m.RecordedAt, m.Systolic, m.Diastolic, m.Pulse, m.SourceDevice}
	},
}

var sleeps = &table[*metric.Sleep]{
	kind: metric.KindSleep,
	columns: []string{"user_id", "sleep_start", "sleep_end", "duration_minutes", "deep_sleep_minutes",
		"rem_sleep_minutes", "light_sleep_minutes", "awake_minutes", "efficiency", "source_device"},
	conflict: []string{"user_id", "sleep_start", "sleep_end"},
	rowBytes: 320,
	args: func(m *metric.Sleep) []any {
		return []any{m.UserID, m.SleepStart, m.SleepEnd, m.DurationMinutes, m.DeepSleepMinutes,
			m.RemSleepMinutes, m.LightSleepMinutes, m.AwakeMinutes, m.EffectiveEfficiency(), m.SourceDevice}
	},
}

var activities = &table[*metric.Activity]{
	kind: metric.KindActivity,
	columns: []string{"user_id", "recorded_date", "step_count", "distance_meters", "active_energy_burned_kcal",
		"basal_energy_burned_kcal", "flights_climbed", "distance_cycling_meters", "distance_swimming_meters",
		"distance_wheelchair_meters", "distance_downhill_snow_sports_meters", "push_count", "swimming_stroke_count",
		"nike_fuel_points", "apple_exercise_time_minutes", "apple_stand_time_minutes", "apple_move_time_minutes",
		"apple_stand_hour_achieved", "source_device"},
	conflict: []string{"user_id", "recorded_date"},
	rowBytes: 576,
	args: func(m *metric.Activity) []any {
		return []any{m.UserID, m.RecordedDate.Time, m.StepCount, m.DistanceMeters, m.ActiveEnergyBurnedKcal,
			m.BasalEnergyBurnedKcal, m.FlightsClimbed, m.DistanceCyclingMeters, m.DistanceSwimmingMeters,
			m.DistanceWheelchairMeters, m.DistanceDownhillSnowSportsMeters, m.PushCount, m.SwimmingStrokeCount,
			m.NikeFuelPoints, m.AppleExerciseTimeMinutes, m.AppleStandTimeMinutes, m.AppleMoveTimeMinutes,
			m.AppleStandHourAchieved, m.SourceDevice}
	},
}

var bodyMeasurements = &table[*metric.BodyMeasurement]{
	kind: metric.KindBodyMeasurement,
	columns: []string{"user_id", "recorded_at", "body_weight_kg", "body_mass_index", "body_fat_percentage",
		"lean_body_mass_kg", "height_cm", "waist_circumference_cm", "hip_circumference_cm",
		"chest_circumference_cm", "arm_circumference_cm", "thigh_circumference_cm", "body_temperature_celsius",
		"basal_body_temperature_celsius", "measurement_source", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 512,
	args: func(m *metric.BodyMeasurement) []any {
		return []any{m.UserID, m.RecordedAt, m.BodyWeightKg, m.BodyMassIndex, m.BodyFatPercentage,
			m.LeanBodyMassKg, m.HeightCm, m.WaistCircumferenceCm, m.HipCircumferenceCm,
			m.ChestCircumferenceCm, m.ArmCircumferenceCm, m.ThighCircumferenceCm, m.BodyTemperatureCelsius,
			m.BasalBodyTemperatureCelsius, m.MeasurementSource, m.SourceDevice}
	},
}

// The workout id is derived from the conflict target, so it is never part
// of the update set.
var workouts = &table[*metric.Workout]{
	kind: metric.KindWorkout,
	columns: []string{"id", "user_id", "workout_type", "started_at", "ended_at", "total_energy_kcal",
		"distance_meters", "avg_heart_rate", "max_heart_rate", "source_device"},
	conflict: []string{"user_id", "started_at"},
	rowBytes: 384,
	args: func(m *metric.Workout) []any {
		return []any{m.ID, m.UserID, string(m.WorkoutType), m.StartedAt, m.EndedAt, m.TotalEnergyKcal,
			m.DistanceMeters, m.AvgHeartRate, m.MaxHeartRate, m.SourceDevice}
	},
}

var routePoints = &table[*metric.WorkoutRoutePoint]{
	kind: metric.KindWorkoutRoute,
	columns: []string{"workout_id", "point_order", "latitude", "longitude", "altitude_meters", "recorded_at",
		"horizontal_accuracy", "speed_mps"},
	conflict: []string{"workout_id", "point_order"},
	rowBytes: 224,
	args: func(m *metric.WorkoutRoutePoint) []any {
		return []any{m.WorkoutID, m.PointOrder, m.Latitude, m.Longitude, m.AltitudeMeters, m.RecordedAt,
			m.HorizontalAccuracy, m.SpeedMPS}
	},
}

var metabolics = &table[*metric.Metabolic]{
	kind:     metric.KindMetabolic,
	columns:  []string{"user_id", "recorded_at", "blood_alcohol_content", "insulin_delivery_units", "delivery_method", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 224,
	args: func(m *metric.Metabolic) []any {
		return []any{m.UserID, m.RecordedAt, m.BloodAlcoholContent, m.InsulinDeliveryUnits, m.DeliveryMethod, m.SourceDevice}
	},
}

var respiratories = &table[*metric.Respiratory]{
	kind: metric.KindRespiratory,
	columns: []string{"user_id", "recorded_at", "respiratory_rate", "oxygen_saturation", "forced_vital_capacity",
		"peak_expiratory_flow_rate", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 256,
	args: func(m *metric.Respiratory) []any {
		return []any{m.UserID, m.RecordedAt, m.RespiratoryRate, m.OxygenSaturation, m.ForcedVitalCapacity,
			m.PeakExpiratoryFlowRate, m.SourceDevice}
	},
}

var bloodGlucoses = &table[*metric.BloodGlucose]{
	kind: metric.KindBloodGlucose,
	columns: []string{"user_id", "recorded_at", "blood_glucose_mg_dl", "measurement_context", "medication_taken",
		"insulin_delivery_units", "glucose_source", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 288,
	args: func(m *metric.BloodGlucose) []any {
		return []any{m.UserID, m.RecordedAt, m.BloodGlucoseMgDl, m.MeasurementContext, m.MedicationTaken,
			m.InsulinDeliveryUnits, m.GlucoseSource, m.SourceDevice}
	},
}

var nutritions = &table[*metric.Nutrition]{
	kind: metric.KindNutrition,
	columns: []string{"user_id", "recorded_at", "dietary_energy_consumed", "dietary_carbohydrates",
		"dietary_protein", "dietary_fat_total", "dietary_fat_saturated", "dietary_cholesterol", "dietary_sodium",
		"dietary_fiber", "dietary_sugar", "dietary_water", "dietary_caffeine", "dietary_calcium", "dietary_iron",
		"dietary_vitamin_c", "dietary_vitamin_d", "meal_type", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 576,
	args: func(m *metric.Nutrition) []any {
		return []any{m.UserID, m.RecordedAt, m.DietaryEnergyConsumed, m.DietaryCarbohydrates,
			m.DietaryProtein, m.DietaryFatTotal, m.DietaryFatSaturated, m.DietaryCholesterol, m.DietarySodium,
			m.DietaryFiber, m.DietarySugar, m.DietaryWater, m.DietaryCaffeine, m.DietaryCalcium, m.DietaryIron,
			m.DietaryVitaminC, m.DietaryVitaminD, m.MealType, m.SourceDevice}
	},
}

var environmentals = &table[*metric.Environmental]{
	kind: metric.KindEnvironmental,
	columns: []string{"user_id", "recorded_at", "environmental_audio_exposure_db", "headphone_audio_exposure_db",
		"uv_index", "uv_exposure_minutes", "ambient_temperature_celsius", "humidity_percent", "air_pressure_hpa",
		"altitude_meters", "time_in_daylight_minutes", "location_latitude", "location_longitude", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 448,
	args: func(m *metric.Environmental) []any {
		return []any{m.UserID, m.RecordedAt, m.EnvironmentalAudioExposureDb, m.HeadphoneAudioExposureDb,
			m.UVIndex, m.UVExposureMinutes, m.AmbientTemperatureCelsius, m.HumidityPercent, m.AirPressureHpa,
			m.AltitudeMeters, m.TimeInDaylightMinutes, m.LocationLatitude, m.LocationLongitude, m.SourceDevice}
	},
}

var audioExposures = &table[*metric.AudioExposure]{
	kind: metric.KindAudioExposure,
	columns: []string{"user_id", "recorded_at", "environmental_audio_exposure_db", "headphone_audio_exposure_db",
		"exposure_duration_minutes", "audio_exposure_event", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 256,
	args: func(m *metric.AudioExposure) []any {
		return []any{m.UserID, m.RecordedAt, m.EnvironmentalAudioExposureDb, m.HeadphoneAudioExposureDb,
			m.ExposureDurationMinutes, enumPtr(m.AudioExposureEvent), m.SourceDevice}
	},
}

var mindfulness = &table[*metric.Mindfulness]{
	kind: metric.KindMindfulness,
	columns: []string{"user_id", "recorded_at", "session_type", "duration_minutes", "stress_level_before",
		"stress_level_after", "focus_rating", "notes", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 320,
	args: func(m *metric.Mindfulness) []any {
		return []any{m.UserID, m.RecordedAt, string(m.SessionType), m.DurationMinutes, m.StressLevelBefore,
			m.StressLevelAfter, m.FocusRating, m.Notes, m.SourceDevice}
	},
}

var mentalHealth = &table[*metric.MentalHealth]{
	kind: metric.KindMentalHealth,
	columns: []string{"user_id", "recorded_at", "mood_rating", "anxiety_level", "stress_level", "energy_level",
		"sleep_quality_perception", "medication_taken", "therapy_session", "source_device"},
	conflict: []string{"user_id", "recorded_at"},
	rowBytes: 320,
	args: func(m *metric.MentalHealth) []any {
		return []any{m.UserID, m.RecordedAt, enumPtr(m.MoodRating), m.AnxietyLevel, m.StressLevel, m.EnergyLevel,
			m.SleepQualityPerception, m.MedicationTaken, m.TherapySession, m.SourceDevice}
	},
}

var symptoms = &table[*metric.Symptom]{
	kind: metric.KindSymptom,
	columns: []string{"user_id", "recorded_at", "symptom_type", "severity", "duration_minutes", "triggers",
		"treatments", "notes", "source_device"},
	conflict: []string{"user_id", "recorded_at", "symptom_type"},
	rowBytes: 384,
	args: func(m *metric.Symptom) []any {
		return []any{m.UserID, m.RecordedAt, string(m.SymptomType), string(m.Severity), m.DurationMinutes,
			m.Triggers, m.Treatments, m.Notes, m.SourceDevice}
	},
}

var heartRateEvents = &table[*metric.HeartRateEvent]{
	kind: metric.KindHeartRateEvent,
	columns: []string{"user_id", "event_occurred_at", "event_type", "heart_rate_at_event",
		"event_duration_minutes", "context", "severity", "is_confirmed", "source_device"},
	conflict: []string{"user_id", "event_occurred_at", "event_type"},
	rowBytes: 320,
	args: func(m *metric.HeartRateEvent) []any {
		return []any{m.UserID, m.EventOccurredAt, string(m.EventType), m.HeartRateAtEvent,
			m.EventDurationMinutes, enumPtr(m.Context), string(m.Severity), m.IsConfirmed, m.SourceDevice}
	},
}

var safetyEvents = &table[*metric.SafetyEvent]{
	kind: metric.KindSafetyEvent,
	columns: []string{"user_id", "recorded_at", "event_type", "severity_level", "location", "description",
		"emergency_contact_notified", "source_device"},
	conflict: []string{"user_id", "recorded_at", "event_type"},
	rowBytes: 320,
	args: func(m *metric.SafetyEvent) []any {
		return []any{m.UserID, m.RecordedAt, string(m.EventType), m.SeverityLevel, m.Location, m.Description,
			m.EmergencyContactNotified, m.SourceDevice}
	},
}

// chunkSizes maps each variant to its configured chunk size.
func chunkSizes(cfg *config.BatchConfig) map[metric.Kind]int {
	out := make(map[metric.Kind]int, len(metric.Kinds))
	bySlug := make(map[string]int)
	for _, s := range cfg.ChunkSettings() {
		bySlug[s.Name] = s.Size
	}
	for _, k := range metric.Kinds {
		out[k] = bySlug[k.Slug()]
	}
	return out
}
