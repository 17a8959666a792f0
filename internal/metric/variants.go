package metric

import (
	"time"

	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
)

// Metric is one HealthMetric variant. The set of implementations is closed:
// every type in this file, and nothing else.
type Metric interface {
	Kind() Kind
	Key() Key
	Validate(cfg *config.ValidationConfig) error
	SetUser(id uuid.UUID)
	isMetric()
}

// Key is a natural key. Fields a variant does not use stay zero, so two keys
// of the same variant compare equal exactly when their natural keys match.
type Key struct {
	Owner uuid.UUID
	At    int64
	End   int64
	Tag   string
}

type HeartRate struct {
	UserID                     uuid.UUID        `json:"-" db:"user_id"`
	RecordedAt                 time.Time        `json:"recorded_at" db:"recorded_at"`
	HeartRate                  *int             `json:"heart_rate,omitempty" db:"heart_rate"`
	RestingHeartRate           *int             `json:"resting_heart_rate,omitempty" db:"resting_heart_rate"`
	HeartRateVariability       *float64         `json:"heart_rate_variability,omitempty" db:"heart_rate_variability"`
	WalkingHeartRateAverage    *int             `json:"walking_heart_rate_average,omitempty" db:"walking_heart_rate_average"`
	HeartRateRecoveryOneMinute *int             `json:"heart_rate_recovery_one_minute,omitempty" db:"heart_rate_recovery_one_minute"`
	VO2Max                     *float64         `json:"vo2_max_ml_kg_min,omitempty" db:"vo2_max_ml_kg_min"`
	Context                    *ActivityContext `json:"context,omitempty" db:"context"`
	SourceDevice               *string          `json:"source_device,omitempty" db:"source_device"`
}

type BloodPressure struct {
	UserID       uuid.UUID `json:"-" db:"user_id"`
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at"`
	Systolic     int       `json:"systolic" db:"systolic"`
	Diastolic    int       `json:"diastolic" db:"diastolic"`
	Pulse        *int      `json:"pulse,omitempty" db:"pulse"`
	SourceDevice *string   `json:"source_device,omitempty" db:"source_device"`
}

type Sleep struct {
	UserID            uuid.UUID `json:"-" db:"user_id"`
	SleepStart        time.Time `json:"sleep_start" db:"sleep_start"`
	SleepEnd          time.Time `json:"sleep_end" db:"sleep_end"`
	DurationMinutes   *int      `json:"duration_minutes,omitempty" db:"duration_minutes"`
	DeepSleepMinutes  *int      `json:"deep_sleep_minutes,omitempty" db:"deep_sleep_minutes"`
	RemSleepMinutes   *int      `json:"rem_sleep_minutes,omitempty" db:"rem_sleep_minutes"`
	LightSleepMinutes *int      `json:"light_sleep_minutes,omitempty" db:"light_sleep_minutes"`
	AwakeMinutes      *int      `json:"awake_minutes,omitempty" db:"awake_minutes"`
	Efficiency        *float64  `json:"efficiency,omitempty" db:"efficiency"`
	SourceDevice      *string   `json:"source_device,omitempty" db:"source_device"`
}

type Activity struct {
	UserID                           uuid.UUID `json:"-" db:"user_id"`
	RecordedDate                     Date      `json:"recorded_date" db:"recorded_date"`
	StepCount                        *int      `json:"step_count,omitempty" db:"step_count"`
	DistanceMeters                   *float64  `json:"distance_meters,omitempty" db:"distance_meters"`
	ActiveEnergyBurnedKcal           *float64  `json:"active_energy_burned_kcal,omitempty" db:"active_energy_burned_kcal"`
	BasalEnergyBurnedKcal            *float64  `json:"basal_energy_burned_kcal,omitempty" db:"basal_energy_burned_kcal"`
	FlightsClimbed                   *int      `json:"flights_climbed,omitempty" db:"flights_climbed"`
	DistanceCyclingMeters            *float64  `json:"distance_cycling_meters,omitempty" db:"distance_cycling_meters"`
	DistanceSwimmingMeters           *float64  `json:"distance_swimming_meters,omitempty" db:"distance_swimming_meters"`
	DistanceWheelchairMeters         *float64  `json:"distance_wheelchair_meters,omitempty" db:"distance_wheelchair_meters"`
	DistanceDownhillSnowSportsMeters *float64  `json:"distance_downhill_snow_sports_meters,omitempty" db:"distance_downhill_snow_sports_meters"`
	PushCount                        *int      `json:"push_count,omitempty" db:"push_count"`
	SwimmingStrokeCount              *int      `json:"swimming_stroke_count,omitempty" db:"swimming_stroke_count"`
	NikeFuelPoints                   *int      `json:"nike_fuel_points,omitempty" db:"nike_fuel_points"`
	AppleExerciseTimeMinutes         *int      `json:"apple_exercise_time_minutes,omitempty" db:"apple_exercise_time_minutes"`
	AppleStandTimeMinutes            *int      `json:"apple_stand_time_minutes,omitempty" db:"apple_stand_time_minutes"`
	AppleMoveTimeMinutes             *int      `json:"apple_move_time_minutes,omitempty" db:"apple_move_time_minutes"`
	AppleStandHourAchieved           *bool     `json:"apple_stand_hour_achieved,omitempty" db:"apple_stand_hour_achieved"`
	SourceDevice                     *string   `json:"source_device,omitempty" db:"source_device"`
}

type BodyMeasurement struct {
	UserID                      uuid.UUID `json:"-" db:"user_id"`
	RecordedAt                  time.Time `json:"recorded_at" db:"recorded_at"`
	BodyWeightKg                *float64  `json:"body_weight_kg,omitempty" db:"body_weight_kg"`
	BodyMassIndex               *float64  `json:"body_mass_index,omitempty" db:"body_mass_index"`
	BodyFatPercentage           *float64  `json:"body_fat_percentage,omitempty" db:"body_fat_percentage"`
	LeanBodyMassKg              *float64  `json:"lean_body_mass_kg,omitempty" db:"lean_body_mass_kg"`
	HeightCm                    *float64  `json:"height_cm,omitempty" db:"height_cm"`
	WaistCircumferenceCm        *float64  `json:"waist_circumference_cm,omitempty" db:"waist_circumference_cm"`
	HipCircumferenceCm          *float64  `json:"hip_circumference_cm,omitempty" db:"hip_circumference_cm"`
	ChestCircumferenceCm        *float64  `json:"chest_circumference_cm,omitempty" db:"chest_circumference_cm"`
	ArmCircumferenceCm          *float64  `json:"arm_circumference_cm,omitempty" db:"arm_circumference_cm"`
	ThighCircumferenceCm        *float64  `json:"thigh_circumference_cm,omitempty" db:"thigh_circumference_cm"`
	BodyTemperatureCelsius      *float64  `json:"body_temperature_celsius,omitempty" db:"body_temperature_celsius"`
	BasalBodyTemperatureCelsius *float64  `json:"basal_body_temperature_celsius,omitempty" db:"basal_body_temperature_celsius"`
	MeasurementSource           *string   `json:"measurement_source,omitempty" db:"measurement_source"`
	SourceDevice                *string   `json:"source_device,omitempty" db:"source_device"`
}

// Workout is an exercise session. ID is derived from (user, started_at) by
// AssignID so that a replayed payload targets the same row.
type Workout struct {
	ID              uuid.UUID    `json:"-" db:"id"`
	UserID          uuid.UUID    `json:"-" db:"user_id"`
	WorkoutType     WorkoutType  `json:"workout_type" db:"workout_type"`
	StartedAt       time.Time    `json:"started_at" db:"started_at"`
	EndedAt         time.Time    `json:"ended_at" db:"ended_at"`
	TotalEnergyKcal *float64     `json:"total_energy_kcal,omitempty" db:"total_energy_kcal"`
	DistanceMeters  *float64     `json:"distance_meters,omitempty" db:"distance_meters"`
	AvgHeartRate    *int         `json:"avg_heart_rate,omitempty" db:"avg_heart_rate"`
	MaxHeartRate    *int         `json:"max_heart_rate,omitempty" db:"max_heart_rate"`
	SourceDevice    *string      `json:"source_device,omitempty" db:"source_device"`
	Route           []RoutePoint `json:"route_points,omitempty" db:"-"`
}

// RoutePoint is one GPS fix on a workout route.
type RoutePoint struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	RecordedAt         time.Time `json:"timestamp"`
	AltitudeMeters     *float64  `json:"altitude,omitempty"`
	HorizontalAccuracy *float64  `json:"horizontal_accuracy,omitempty"`
	SpeedMPS           *float64  `json:"speed,omitempty"`
}

// WorkoutRoutePoint is a RoutePoint bound to its parent workout and position.
type WorkoutRoutePoint struct {
	WorkoutID  uuid.UUID `db:"workout_id"`
	PointOrder int       `db:"point_order"`
	RoutePoint
}

type Metabolic struct {
	UserID               uuid.UUID `json:"-" db:"user_id"`
	RecordedAt           time.Time `json:"recorded_at" db:"recorded_at"`
	BloodAlcoholContent  *float64  `json:"blood_alcohol_content,omitempty" db:"blood_alcohol_content"`
	InsulinDeliveryUnits *float64  `json:"insulin_delivery_units,omitempty" db:"insulin_delivery_units"`
	DeliveryMethod       *string   `json:"delivery_method,omitempty" db:"delivery_method"`
	SourceDevice         *string   `json:"source_device,omitempty" db:"source_device"`
}

type Respiratory struct {
	UserID                 uuid.UUID `json:"-" db:"user_id"`
	RecordedAt             time.Time `json:"recorded_at" db:"recorded_at"`
	RespiratoryRate        *float64  `json:"respiratory_rate,omitempty" db:"respiratory_rate"`
	OxygenSaturation       *float64  `json:"oxygen_saturation,omitempty" db:"oxygen_saturation"`
	ForcedVitalCapacity    *float64  `json:"forced_vital_capacity,omitempty" db:"forced_vital_capacity"`
	PeakExpiratoryFlowRate *float64  `json:"peak_expiratory_flow_rate,omitempty" db:"peak_expiratory_flow_rate"`
	SourceDevice           *string   `json:"source_device,omitempty" db:"source_device"`
}

type BloodGlucose struct {
	UserID               uuid.UUID `json:"-" db:"user_id"`
	RecordedAt           time.Time `json:"recorded_at" db:"recorded_at"`
	BloodGlucoseMgDl     float64   `json:"blood_glucose_mg_dl" db:"blood_glucose_mg_dl"`
	MeasurementContext   *string   `json:"measurement_context,omitempty" db:"measurement_context"`
	MedicationTaken      *bool     `json:"medication_taken,omitempty" db:"medication_taken"`
	InsulinDeliveryUnits *float64  `json:"insulin_delivery_units,omitempty" db:"insulin_delivery_units"`
	GlucoseSource        *string   `json:"glucose_source,omitempty" db:"glucose_source"`
	SourceDevice         *string   `json:"source_device,omitempty" db:"source_device"`
}

type Nutrition struct {
	UserID                uuid.UUID `json:"-" db:"user_id"`
	RecordedAt            time.Time `json:"recorded_at" db:"recorded_at"`
	DietaryEnergyConsumed *float64  `json:"dietary_energy_consumed,omitempty" db:"dietary_energy_consumed"`
	DietaryCarbohydrates  *float64  `json:"dietary_carbohydrates,omitempty" db:"dietary_carbohydrates"`
	DietaryProtein        *float64  `json:"dietary_protein,omitempty" db:"dietary_protein"`
	DietaryFatTotal       *float64  `json:"dietary_fat_total,omitempty" db:"dietary_fat_total"`
	DietaryFatSaturated   *float64  `json:"dietary_fat_saturated,omitempty" db:"dietary_fat_saturated"`
	DietaryCholesterol    *float64  `json:"dietary_cholesterol,omitempty" db:"dietary_cholesterol"`
	DietarySodium         *float64  `json:"dietary_sodium,omitempty" db:"dietary_sodium"`
	DietaryFiber          *float64  `json:"dietary_fiber,omitempty" db:"dietary_fiber"`
	DietarySugar          *float64  `json:"dietary_sugar,omitempty" db:"dietary_sugar"`
	DietaryWater          *float64  `json:"dietary_water,omitempty" db:"dietary_water"`
	DietaryCaffeine       *float64  `json:"dietary_caffeine,omitempty" db:"dietary_caffeine"`
	DietaryCalcium        *float64  `json:"dietary_calcium,omitempty" db:"dietary_calcium"`
	DietaryIron           *float64  `json:"dietary_iron,omitempty" db:"dietary_iron"`
	DietaryVitaminC       *float64  `json:"dietary_vitamin_c,omitempty" db:"dietary_vitamin_c"`
	DietaryVitaminD       *float64  `json:"dietary_vitamin_d,omitempty" db:"dietary_vitamin_d"`
	MealType              *string   `json:"meal_type,omitempty" db:"meal_type"`
	SourceDevice          *string   `json:"source_device,omitempty" db:"source_device"`
}

type Environmental struct {
	UserID                       uuid.UUID `json:"-" db:"user_id"`
	RecordedAt                   time.Time `json:"recorded_at" db:"recorded_at"`
	EnvironmentalAudioExposureDb *float64  `json:"environmental_audio_exposure_db,omitempty" db:"environmental_audio_exposure_db"`
	HeadphoneAudioExposureDb     *float64  `json:"headphone_audio_exposure_db,omitempty" db:"headphone_audio_exposure_db"`
	UVIndex                      *float64  `json:"uv_index,omitempty" db:"uv_index"`
	UVExposureMinutes            *int      `json:"uv_exposure_minutes,omitempty" db:"uv_exposure_minutes"`
	AmbientTemperatureCelsius    *float64  `json:"ambient_temperature_celsius,omitempty" db:"ambient_temperature_celsius"`
	HumidityPercent              *float64  `json:"humidity_percent,omitempty" db:"humidity_percent"`
	AirPressureHpa               *float64  `json:"air_pressure_hpa,omitempty" db:"air_pressure_hpa"`
	AltitudeMeters               *float64  `json:"altitude_meters,omitempty" db:"altitude_meters"`
	TimeInDaylightMinutes        *int      `json:"time_in_daylight_minutes,omitempty" db:"time_in_daylight_minutes"`
	LocationLatitude             *float64  `json:"location_latitude,omitempty" db:"location_latitude"`
	LocationLongitude            *float64  `json:"location_longitude,omitempty" db:"location_longitude"`
	SourceDevice                 *string   `json:"source_device,omitempty" db:"source_device"`
}

type AudioExposure struct {
	UserID                       uuid.UUID           `json:"-" db:"user_id"`
	RecordedAt                   time.Time           `json:"recorded_at" db:"recorded_at"`
	EnvironmentalAudioExposureDb *float64            `json:"environmental_audio_exposure_db,omitempty" db:"environmental_audio_exposure_db"`
	HeadphoneAudioExposureDb     *float64            `json:"headphone_audio_exposure_db,omitempty" db:"headphone_audio_exposure_db"`
	ExposureDurationMinutes      *int                `json:"exposure_duration_minutes,omitempty" db:"exposure_duration_minutes"`
	AudioExposureEvent           *AudioExposureEvent `json:"audio_exposure_event,omitempty" db:"audio_exposure_event"`
	SourceDevice                 *string             `json:"source_device,omitempty" db:"source_device"`
}

type Mindfulness struct {
	UserID            uuid.UUID              `json:"-" db:"user_id"`
	RecordedAt        time.Time              `json:"recorded_at" db:"recorded_at"`
	SessionType       MindfulnessSessionType `json:"session_type" db:"session_type"`
	DurationMinutes   int                    `json:"duration_minutes" db:"duration_minutes"`
	StressLevelBefore *int                   `json:"stress_level_before,omitempty" db:"stress_level_before"`
	StressLevelAfter  *int                   `json:"stress_level_after,omitempty" db:"stress_level_after"`
	FocusRating       *int                   `json:"focus_rating,omitempty" db:"focus_rating"`
	Notes             *string                `json:"notes,omitempty" db:"notes"`
	SourceDevice      *string                `json:"source_device,omitempty" db:"source_device"`
}

type MentalHealth struct {
	UserID                 uuid.UUID   `json:"-" db:"user_id"`
	RecordedAt             time.Time   `json:"recorded_at" db:"recorded_at"`
	MoodRating             *MoodRating `json:"mood_rating,omitempty" db:"mood_rating"`
	AnxietyLevel           *int        `json:"anxiety_level,omitempty" db:"anxiety_level"`
	StressLevel            *int        `json:"stress_level,omitempty" db:"stress_level"`
	EnergyLevel            *int        `json:"energy_level,omitempty" db:"energy_level"`
	SleepQualityPerception *int        `json:"sleep_quality_perception,omitempty" db:"sleep_quality_perception"`
	MedicationTaken        *bool       `json:"medication_taken,omitempty" db:"medication_taken"`
	TherapySession         *bool       `json:"therapy_session,omitempty" db:"therapy_session"`
	SourceDevice           *string     `json:"source_device,omitempty" db:"source_device"`
}

type Symptom struct {
	UserID          uuid.UUID       `json:"-" db:"user_id"`
	RecordedAt      time.Time       `json:"recorded_at" db:"recorded_at"`
	SymptomType     SymptomType     `json:"symptom_type" db:"symptom_type"`
	Severity        SymptomSeverity `json:"severity" db:"severity"`
	DurationMinutes *int            `json:"duration_minutes,omitempty" db:"duration_minutes"`
	Triggers        []string        `json:"triggers,omitempty" db:"triggers"`
	Treatments      []string        `json:"treatments,omitempty" db:"treatments"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	SourceDevice    *string         `json:"source_device,omitempty" db:"source_device"`
}

type HeartRateEvent struct {
	UserID               uuid.UUID            `json:"-" db:"user_id"`
	EventOccurredAt      time.Time            `json:"event_occurred_at" db:"event_occurred_at"`
	EventType            HeartRateEventType   `json:"event_type" db:"event_type"`
	HeartRateAtEvent     *int                 `json:"heart_rate_at_event,omitempty" db:"heart_rate_at_event"`
	EventDurationMinutes *int                 `json:"event_duration_minutes,omitempty" db:"event_duration_minutes"`
	Context              *ActivityContext     `json:"context,omitempty" db:"context"`
	Severity             CardiacEventSeverity `json:"severity" db:"severity"`
	IsConfirmed          bool                 `json:"is_confirmed" db:"is_confirmed"`
	SourceDevice         *string              `json:"source_device,omitempty" db:"source_device"`
}

type SafetyEvent struct {
	UserID                   uuid.UUID       `json:"-" db:"user_id"`
	RecordedAt               time.Time       `json:"recorded_at" db:"recorded_at"`
	EventType                SafetyEventType `json:"event_type" db:"event_type"`
	SeverityLevel            *int            `json:"severity_level,omitempty" db:"severity_level"`
	Location                 *string         `json:"location,omitempty" db:"location"`
	Description              *string         `json:"description,omitempty" db:"description"`
	EmergencyContactNotified bool            `json:"emergency_contact_notified" db:"emergency_contact_notified"`
	SourceDevice             *string         `json:"source_device,omitempty" db:"source_device"`
}

func (*HeartRate) Kind() Kind         { return KindHeartRate }
func (*BloodPressure) Kind() Kind     { return KindBloodPressure }
func (*Sleep) Kind() Kind             { return KindSleep }
func (*Activity) Kind() Kind          { return KindActivity }
func (*BodyMeasurement) Kind() Kind   { return KindBodyMeasurement }
func (*Workout) Kind() Kind           { return KindWorkout }
func (*WorkoutRoutePoint) Kind() Kind { return KindWorkoutRoute }
func (*Metabolic) Kind() Kind         { return KindMetabolic }
func (*Respiratory) Kind() Kind       { return KindRespiratory }
func (*BloodGlucose) Kind() Kind      { return KindBloodGlucose }
func (*Nutrition) Kind() Kind         { return KindNutrition }
func (*Environmental) Kind() Kind     { return KindEnvironmental }
func (*AudioExposure) Kind() Kind     { return KindAudioExposure }
func (*Mindfulness) Kind() Kind       { return KindMindfulness }
func (*MentalHealth) Kind() Kind      { return KindMentalHealth }
func (*Symptom) Kind() Kind           { return KindSymptom }
func (*HeartRateEvent) Kind() Kind    { return KindHeartRateEvent }
func (*SafetyEvent) Kind() Kind       { return KindSafetyEvent }

func (m *HeartRate) SetUser(id uuid.UUID)       { m.UserID = id }
func (m *BloodPressure) SetUser(id uuid.UUID)   { m.UserID = id }
func (m *Sleep) SetUser(id uuid.UUID)           { m.UserID = id }
func (m *Activity) SetUser(id uuid.UUID)        { m.UserID = id }
func (m *BodyMeasurement) SetUser(id uuid.UUID) { m.UserID = id }
func (m *Workout) SetUser(id uuid.UUID)         { m.UserID = id }
func (m *Metabolic) SetUser(id uuid.UUID)       { m.UserID = id }
func (m *Respiratory) SetUser(id uuid.UUID)     { m.UserID = id }
func (m *BloodGlucose) SetUser(id uuid.UUID)    { m.UserID = id }
func (m *Nutrition) SetUser(id uuid.UUID)       { m.UserID = id }
func (m *Environmental) SetUser(id uuid.UUID)   { m.UserID = id }
func (m *AudioExposure) SetUser(id uuid.UUID)   { m.UserID = id }
func (m *Mindfulness) SetUser(id uuid.UUID)     { m.UserID = id }
func (m *MentalHealth) SetUser(id uuid.UUID)    { m.UserID = id }
func (m *Symptom) SetUser(id uuid.UUID)         { m.UserID = id }
func (m *HeartRateEvent) SetUser(id uuid.UUID)  { m.UserID = id }
func (m *SafetyEvent) SetUser(id uuid.UUID)     { m.UserID = id }

// SetUser is a no-op; route points are owned through their workout.
func (*WorkoutRoutePoint) SetUser(uuid.UUID) {}

func (*HeartRate) isMetric()         {}
func (*BloodPressure) isMetric()     {}
func (*Sleep) isMetric()             {}
func (*Activity) isMetric()          {}
func (*BodyMeasurement) isMetric()   {}
func (*Workout) isMetric()           {}
func (*WorkoutRoutePoint) isMetric() {}
func (*Metabolic) isMetric()         {}
func (*Respiratory) isMetric()       {}
func (*BloodGlucose) isMetric()      {}
func (*Nutrition) isMetric()         {}
func (*Environmental) isMetric()     {}
func (*AudioExposure) isMetric()     {}
func (*Mindfulness) isMetric()       {}
func (*MentalHealth) isMetric()      {}
func (*Symptom) isMetric()           {}
func (*HeartRateEvent) isMetric()    {}
func (*SafetyEvent) isMetric()       {}

// New returns an empty value of the variant k, or nil for kinds that are
// never decoded directly.
func New(k Kind) Metric {
	switch k {
	case KindHeartRate:
		return &HeartRate{}
	case KindBloodPressure:
		return &BloodPressure{}
	case KindSleep:
		return &Sleep{}
	case KindActivity:
		return &Activity{}
	case KindBodyMeasurement:
		return &BodyMeasurement{}
	case KindWorkout:
		return &Workout{}
	case KindMetabolic:
		return &Metabolic{}
	case KindRespiratory:
		return &Respiratory{}
	case KindBloodGlucose:
		return &BloodGlucose{}
	case KindNutrition:
		return &Nutrition{}
	case KindEnvironmental:
		return &Environmental{}
	case KindAudioExposure:
		return &AudioExposure{}
	case KindMindfulness:
		return &Mindfulness{}
	case KindMentalHealth:
		return &MentalHealth{}
	case KindSymptom:
		return &Symptom{}
	case KindHeartRateEvent:
		return &HeartRateEvent{}
	case KindSafetyEvent:
		return &SafetyEvent{}
	}
	return nil
}
