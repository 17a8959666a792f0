package metric

import (
	"errors"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
)

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func suffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}

func intRange(name string, v, lo, hi int, unit string) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d%s outside [%d, %d]", name, v, suffix(unit), lo, hi)
	}
	return nil
}

func optInt(name string, v *int, lo, hi int, unit string) error {
	if v == nil {
		return nil
	}
	return intRange(name, *v, lo, hi, unit)
}

func floatRange(name string, v, lo, hi float64, unit string) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %g%s outside [%g, %g]", name, v, suffix(unit), lo, hi)
	}
	return nil
}

func optFloat(name string, v *float64, lo, hi float64, unit string) error {
	if v == nil {
		return nil
	}
	return floatRange(name, *v, lo, hi, unit)
}

func optNonNegative(name string, v *int) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%s must be non-negative, got %d", name, *v)
	}
	return nil
}

func optNonNegativeFloat(name string, v *float64) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%s must be non-negative, got %g", name, *v)
	}
	return nil
}

func required(name string, t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func interval(startName, endName string, start, end time.Time) error {
	if err := firstErr(required(startName, start), required(endName, end)); err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("%s %s must be after %s %s",
			endName, end.Format(time.RFC3339), startName, start.Format(time.RFC3339))
	}
	return nil
}

func anySet(ptrs ...any) bool {
	for _, p := range ptrs {
		switch v := p.(type) {
		case *int:
			if v != nil {
				return true
			}
		case *float64:
			if v != nil {
				return true
			}
		case *bool:
			if v != nil {
				return true
			}
		case *MoodRating:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m *HeartRate) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !anySet(m.HeartRate, m.RestingHeartRate, m.HeartRateVariability, m.WalkingHeartRateAverage,
		m.HeartRateRecoveryOneMinute, m.VO2Max) {
		return errors.New("heart rate record has no measurements")
	}
	if m.Context != nil && !m.Context.IsValid() {
		return fmt.Errorf("unknown activity context %q", *m.Context)
	}
	return firstErr(
		optInt("heart rate", m.HeartRate, cfg.HeartRateMin, cfg.HeartRateMax, "bpm"),
		optInt("resting heart rate", m.RestingHeartRate, cfg.HeartRateMin, cfg.HeartRateMax, "bpm"),
		optInt("walking heart rate average", m.WalkingHeartRateAverage, cfg.HeartRateMin, cfg.HeartRateMax, "bpm"),
		optInt("heart rate recovery", m.HeartRateRecoveryOneMinute, 0, cfg.HeartRateMax, "bpm"),
		optFloat("heart rate variability", m.HeartRateVariability, 0, cfg.HRVMax, "ms"),
		optFloat("vo2 max", m.VO2Max, cfg.VO2MaxMin, cfg.VO2MaxMax, "ml/kg/min"),
	)
}

func (m *BloodPressure) Validate(cfg *config.ValidationConfig) error {
	if err := firstErr(
		required("recorded_at", m.RecordedAt),
		intRange("systolic", m.Systolic, cfg.SystolicMin, cfg.SystolicMax, "mmHg"),
		intRange("diastolic", m.Diastolic, cfg.DiastolicMin, cfg.DiastolicMax, "mmHg"),
		optInt("pulse", m.Pulse, cfg.HeartRateMin, cfg.HeartRateMax, "bpm"),
	); err != nil {
		return err
	}
	if m.Systolic <= m.Diastolic {
		return fmt.Errorf("systolic %d must be greater than diastolic %d", m.Systolic, m.Diastolic)
	}
	return nil
}

// InBedMinutes is the whole minutes between sleep start and end.
func (m *Sleep) InBedMinutes() int {
	return int(m.SleepEnd.Sub(m.SleepStart) / time.Minute)
}

// EffectiveEfficiency returns Efficiency, or derives it from the sleep
// duration over time in bed when absent.
func (m *Sleep) EffectiveEfficiency() *float64 {
	if m.Efficiency != nil {
		return m.Efficiency
	}
	inBed := m.InBedMinutes()
	if m.DurationMinutes == nil || inBed <= 0 {
		return nil
	}
	e := float64(*m.DurationMinutes) / float64(inBed) * 100
	if e < 0 {
		e = 0
	}
	if e > 100 {
		e = 100
	}
	return &e
}

func (m *Sleep) Validate(cfg *config.ValidationConfig) error {
	if err := interval("sleep_start", "sleep_end", m.SleepStart, m.SleepEnd); err != nil {
		return err
	}
	inBed := m.InBedMinutes()
	maxInBed := cfg.SleepMaxDurationHours*60 + cfg.SleepDurationToleranceMinutes
	if inBed > maxInBed {
		return fmt.Errorf("sleep duration %d minutes exceeds %d", inBed, maxInBed)
	}
	if err := firstErr(
		optNonNegative("duration_minutes", m.DurationMinutes),
		optNonNegative("deep_sleep_minutes", m.DeepSleepMinutes),
		optNonNegative("rem_sleep_minutes", m.RemSleepMinutes),
		optNonNegative("light_sleep_minutes", m.LightSleepMinutes),
		optNonNegative("awake_minutes", m.AwakeMinutes),
		optFloat("sleep efficiency", m.Efficiency, cfg.SleepEfficiencyMin, cfg.SleepEfficiencyMax, "%"),
	); err != nil {
		return err
	}
	if m.DurationMinutes != nil && *m.DurationMinutes > inBed+cfg.SleepDurationToleranceMinutes {
		return fmt.Errorf("total sleep %d minutes exceeds time in bed %d minutes", *m.DurationMinutes, inBed)
	}
	sum := 0
	for _, v := range []*int{m.DeepSleepMinutes, m.RemSleepMinutes, m.LightSleepMinutes, m.AwakeMinutes} {
		if v != nil {
			sum += *v
		}
	}
	if sum > inBed {
		return fmt.Errorf("sleep components sum to %d minutes, more than %d minutes in bed", sum, inBed)
	}
	return nil
}

func (m *Activity) Validate(cfg *config.ValidationConfig) error {
	if m.RecordedDate.IsZero() {
		return errors.New("recorded_date is required")
	}
	maxMeters := cfg.DistanceMaxKm * 1000
	return firstErr(
		optInt("step count", m.StepCount, cfg.StepCountMin, cfg.StepCountMax, "steps"),
		optFloat("distance", m.DistanceMeters, 0, maxMeters, "m"),
		optFloat("cycling distance", m.DistanceCyclingMeters, 0, maxMeters, "m"),
		optFloat("swimming distance", m.DistanceSwimmingMeters, 0, maxMeters, "m"),
		optFloat("wheelchair distance", m.DistanceWheelchairMeters, 0, maxMeters, "m"),
		optFloat("downhill snow sports distance", m.DistanceDownhillSnowSportsMeters, 0, maxMeters, "m"),
		optFloat("active energy", m.ActiveEnergyBurnedKcal, 0, cfg.CaloriesMax, "kcal"),
		optFloat("basal energy", m.BasalEnergyBurnedKcal, 0, cfg.CaloriesMax, "kcal"),
		optNonNegative("flights_climbed", m.FlightsClimbed),
		optNonNegative("push_count", m.PushCount),
		optNonNegative("swimming_stroke_count", m.SwimmingStrokeCount),
		optNonNegative("nike_fuel_points", m.NikeFuelPoints),
		optInt("exercise time", m.AppleExerciseTimeMinutes, 0, 1440, "min"),
		optInt("stand time", m.AppleStandTimeMinutes, 0, 1440, "min"),
		optInt("move time", m.AppleMoveTimeMinutes, 0, 1440, "min"),
	)
}

func (m *BodyMeasurement) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !anySet(m.BodyWeightKg, m.BodyMassIndex, m.BodyFatPercentage, m.LeanBodyMassKg, m.HeightCm,
		m.WaistCircumferenceCm, m.HipCircumferenceCm, m.ChestCircumferenceCm, m.ArmCircumferenceCm,
		m.ThighCircumferenceCm, m.BodyTemperatureCelsius, m.BasalBodyTemperatureCelsius) {
		return errors.New("body measurement has no measurements")
	}
	return firstErr(
		optFloat("body weight", m.BodyWeightKg, cfg.BodyWeightMinKg, cfg.BodyWeightMaxKg, "kg"),
		optFloat("bmi", m.BodyMassIndex, cfg.BMIMin, cfg.BMIMax, ""),
		optFloat("body fat", m.BodyFatPercentage, cfg.BodyFatMinPercent, cfg.BodyFatMaxPercent, "%"),
		optFloat("lean body mass", m.LeanBodyMassKg, 0, cfg.BodyWeightMaxKg, "kg"),
		optFloat("height", m.HeightCm, cfg.HeightMinCm, cfg.HeightMaxCm, "cm"),
		optFloat("waist circumference", m.WaistCircumferenceCm, 0, cfg.HeightMaxCm, "cm"),
		optFloat("hip circumference", m.HipCircumferenceCm, 0, cfg.HeightMaxCm, "cm"),
		optFloat("chest circumference", m.ChestCircumferenceCm, 0, cfg.HeightMaxCm, "cm"),
		optFloat("arm circumference", m.ArmCircumferenceCm, 0, cfg.HeightMaxCm, "cm"),
		optFloat("thigh circumference", m.ThighCircumferenceCm, 0, cfg.HeightMaxCm, "cm"),
		optFloat("body temperature", m.BodyTemperatureCelsius, cfg.BodyTemperatureMin, cfg.BodyTemperatureMax, "°C"),
		optFloat("basal body temperature", m.BasalBodyTemperatureCelsius, cfg.BodyTemperatureMin, cfg.BodyTemperatureMax, "°C"),
	)
}

func (m *Workout) Validate(cfg *config.ValidationConfig) error {
	if err := interval("started_at", "ended_at", m.StartedAt, m.EndedAt); err != nil {
		return err
	}
	if !m.WorkoutType.IsValid() {
		return fmt.Errorf("unknown workout type %q", m.WorkoutType)
	}
	limit := time.Duration(cfg.WorkoutMaxDurationHours) * time.Hour
	if d := m.EndedAt.Sub(m.StartedAt); d > limit {
		return fmt.Errorf("workout duration %s exceeds %s", d, limit)
	}
	if err := firstErr(
		optInt("average heart rate", m.AvgHeartRate, cfg.WorkoutHeartRateMin, cfg.WorkoutHeartRateMax, "bpm"),
		optInt("max heart rate", m.MaxHeartRate, cfg.WorkoutHeartRateMin, cfg.WorkoutHeartRateMax, "bpm"),
		optFloat("workout energy", m.TotalEnergyKcal, 0, cfg.CaloriesMax, "kcal"),
		optFloat("workout distance", m.DistanceMeters, 0, cfg.DistanceMaxKm*1000, "m"),
	); err != nil {
		return err
	}
	if m.AvgHeartRate != nil && m.MaxHeartRate != nil && *m.AvgHeartRate > *m.MaxHeartRate {
		return fmt.Errorf("average heart rate %d above max heart rate %d", *m.AvgHeartRate, *m.MaxHeartRate)
	}
	return m.validateRoute(cfg)
}

func (m *Workout) validateRoute(cfg *config.ValidationConfig) error {
	var prev time.Time
	for i := range m.Route {
		p := &m.Route[i]
		if err := p.validate(cfg); err != nil {
			return fmt.Errorf("route point %d: %w", i, err)
		}
		if p.RecordedAt.Before(m.StartedAt) || p.RecordedAt.After(m.EndedAt) {
			return fmt.Errorf("route point %d at %s outside workout interval", i, p.RecordedAt.Format(time.RFC3339))
		}
		if i > 0 && p.RecordedAt.Before(prev) {
			return fmt.Errorf("route point %d timestamp goes backwards", i)
		}
		prev = p.RecordedAt
	}
	return nil
}

func (p *RoutePoint) validate(cfg *config.ValidationConfig) error {
	return firstErr(
		required("timestamp", p.RecordedAt),
		floatRange("latitude", p.Latitude, cfg.LatitudeMin, cfg.LatitudeMax, ""),
		floatRange("longitude", p.Longitude, cfg.LongitudeMin, cfg.LongitudeMax, ""),
		optNonNegativeFloat("horizontal_accuracy", p.HorizontalAccuracy),
		optNonNegativeFloat("speed", p.SpeedMPS),
	)
}

func (m *WorkoutRoutePoint) Validate(cfg *config.ValidationConfig) error {
	if m.PointOrder < 0 {
		return fmt.Errorf("point_order must be non-negative, got %d", m.PointOrder)
	}
	return m.RoutePoint.validate(cfg)
}

func (m *Metabolic) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !anySet(m.BloodAlcoholContent, m.InsulinDeliveryUnits) {
		return errors.New("metabolic record has no measurements")
	}
	return firstErr(
		optFloat("blood alcohol content", m.BloodAlcoholContent, 0, cfg.BloodAlcoholMax, "%"),
		optFloat("insulin delivery", m.InsulinDeliveryUnits, 0, cfg.InsulinMaxUnits, "units"),
	)
}

func (m *Respiratory) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !anySet(m.RespiratoryRate, m.OxygenSaturation, m.ForcedVitalCapacity, m.PeakExpiratoryFlowRate) {
		return errors.New("respiratory record has no measurements")
	}
	return firstErr(
		optFloat("respiratory rate", m.RespiratoryRate, cfg.RespiratoryRateMin, cfg.RespiratoryRateMax, "breaths/min"),
		optFloat("oxygen saturation", m.OxygenSaturation, cfg.OxygenSaturationMin, cfg.OxygenSaturationMax, "%"),
		optFloat("forced vital capacity", m.ForcedVitalCapacity, cfg.ForcedVitalCapacityMin, cfg.ForcedVitalCapacityMax, "L"),
		optFloat("peak expiratory flow rate", m.PeakExpiratoryFlowRate, cfg.PeakExpiratoryFlowRateMin, cfg.PeakExpiratoryFlowRateMax, "L/min"),
	)
}

func (m *BloodGlucose) Validate(cfg *config.ValidationConfig) error {
	return firstErr(
		required("recorded_at", m.RecordedAt),
		floatRange("blood glucose", m.BloodGlucoseMgDl, cfg.BloodGlucoseMin, cfg.BloodGlucoseMax, "mg/dL"),
		optFloat("insulin delivery", m.InsulinDeliveryUnits, 0, cfg.InsulinMaxUnits, "units"),
	)
}

func (m *Nutrition) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	nutrients := []struct {
		name string
		v    *float64
	}{
		{"dietary_carbohydrates", m.DietaryCarbohydrates},
		{"dietary_protein", m.DietaryProtein},
		{"dietary_fat_total", m.DietaryFatTotal},
		{"dietary_fat_saturated", m.DietaryFatSaturated},
		{"dietary_cholesterol", m.DietaryCholesterol},
		{"dietary_sodium", m.DietarySodium},
		{"dietary_fiber", m.DietaryFiber},
		{"dietary_sugar", m.DietarySugar},
		{"dietary_water", m.DietaryWater},
		{"dietary_caffeine", m.DietaryCaffeine},
		{"dietary_calcium", m.DietaryCalcium},
		{"dietary_iron", m.DietaryIron},
		{"dietary_vitamin_c", m.DietaryVitaminC},
		{"dietary_vitamin_d", m.DietaryVitaminD},
	}
	seen := m.DietaryEnergyConsumed != nil
	for _, n := range nutrients {
		if n.v == nil {
			continue
		}
		seen = true
		if err := optNonNegativeFloat(n.name, n.v); err != nil {
			return err
		}
	}
	if !seen {
		return errors.New("nutrition record has no nutrients")
	}
	return optFloat("dietary energy", m.DietaryEnergyConsumed, 0, cfg.CaloriesMax, "kcal")
}

func (m *Environmental) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	return firstErr(
		optFloat("environmental audio exposure", m.EnvironmentalAudioExposureDb, 0, cfg.AudioExposureMaxDb, "dB"),
		optFloat("headphone audio exposure", m.HeadphoneAudioExposureDb, 0, cfg.AudioExposureMaxDb, "dB"),
		optFloat("uv index", m.UVIndex, 0, cfg.UVIndexMax, ""),
		optInt("uv exposure", m.UVExposureMinutes, 0, 1440, "min"),
		optFloat("ambient temperature", m.AmbientTemperatureCelsius, cfg.AmbientTemperatureMin, cfg.AmbientTemperatureMax, "°C"),
		optFloat("humidity", m.HumidityPercent, 0, 100, "%"),
		optFloat("air pressure", m.AirPressureHpa, cfg.AirPressureMinHpa, cfg.AirPressureMaxHpa, "hPa"),
		optInt("time in daylight", m.TimeInDaylightMinutes, 0, 1440, "min"),
		optFloat("latitude", m.LocationLatitude, cfg.LatitudeMin, cfg.LatitudeMax, ""),
		optFloat("longitude", m.LocationLongitude, cfg.LongitudeMin, cfg.LongitudeMax, ""),
	)
}

func (m *AudioExposure) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !anySet(m.EnvironmentalAudioExposureDb, m.HeadphoneAudioExposureDb) {
		return errors.New("audio exposure record has no level")
	}
	if m.AudioExposureEvent != nil && !m.AudioExposureEvent.IsValid() {
		return fmt.Errorf("unknown audio exposure event %q", *m.AudioExposureEvent)
	}
	return firstErr(
		optFloat("environmental audio exposure", m.EnvironmentalAudioExposureDb, 0, cfg.AudioExposureMaxDb, "dB"),
		optFloat("headphone audio exposure", m.HeadphoneAudioExposureDb, 0, cfg.AudioExposureMaxDb, "dB"),
		optNonNegative("exposure_duration_minutes", m.ExposureDurationMinutes),
	)
}

func (m *Mindfulness) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !m.SessionType.IsValid() {
		return fmt.Errorf("unknown mindfulness session type %q", m.SessionType)
	}
	return firstErr(
		intRange("mindfulness duration", m.DurationMinutes, 1, cfg.MindfulnessMaxMinutes, "min"),
		optInt("stress level before", m.StressLevelBefore, cfg.WellbeingScaleMin, cfg.WellbeingScaleMax, ""),
		optInt("stress level after", m.StressLevelAfter, cfg.WellbeingScaleMin, cfg.WellbeingScaleMax, ""),
		optInt("focus rating", m.FocusRating, cfg.WellbeingScaleMin, cfg.WellbeingScaleMax, ""),
	)
}

func (m *MentalHealth) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !anySet(m.MoodRating, m.AnxietyLevel, m.StressLevel, m.EnergyLevel, m.SleepQualityPerception,
		m.MedicationTaken, m.TherapySession) {
		return errors.New("mental health record has no entries")
	}
	if m.MoodRating != nil && !m.MoodRating.IsValid() {
		return fmt.Errorf("unknown mood rating %q", *m.MoodRating)
	}
	lo, hi := cfg.WellbeingScaleMin, cfg.WellbeingScaleMax
	return firstErr(
		optInt("anxiety level", m.AnxietyLevel, lo, hi, ""),
		optInt("stress level", m.StressLevel, lo, hi, ""),
		optInt("energy level", m.EnergyLevel, lo, hi, ""),
		optInt("sleep quality perception", m.SleepQualityPerception, lo, hi, ""),
	)
}

func (m *Symptom) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !m.SymptomType.IsValid() {
		return fmt.Errorf("unknown symptom type %q", m.SymptomType)
	}
	if !m.Severity.IsValid() {
		return fmt.Errorf("unknown symptom severity %q", m.Severity)
	}
	return optInt("symptom duration", m.DurationMinutes, 0, cfg.SymptomMaxMinutes, "min")
}

func (m *HeartRateEvent) Validate(cfg *config.ValidationConfig) error {
	if err := required("event_occurred_at", m.EventOccurredAt); err != nil {
		return err
	}
	if !m.EventType.IsValid() {
		return fmt.Errorf("unknown heart rate event type %q", m.EventType)
	}
	if !m.Severity.IsValid() {
		return fmt.Errorf("unknown cardiac event severity %q", m.Severity)
	}
	if m.Context != nil && !m.Context.IsValid() {
		return fmt.Errorf("unknown activity context %q", *m.Context)
	}
	return firstErr(
		optInt("heart rate at event", m.HeartRateAtEvent, cfg.HeartRateMin, cfg.HeartRateMax, "bpm"),
		optNonNegative("event_duration_minutes", m.EventDurationMinutes),
	)
}

func (m *SafetyEvent) Validate(cfg *config.ValidationConfig) error {
	if err := required("recorded_at", m.RecordedAt); err != nil {
		return err
	}
	if !m.EventType.IsValid() {
		return fmt.Errorf("unknown safety event type %q", m.EventType)
	}
	return optInt("severity level", m.SeverityLevel, 1, 5, "")
}
