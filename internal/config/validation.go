package config

import (
	"errors"
	"fmt"
)

// ValidationConfig holds the value bounds applied to every ingested metric.
// It is immutable after load; consumers receive a pointer and must not mutate it.
type ValidationConfig struct {
	HeartRateMin int     `yaml:"heart_rate_min"`
	HeartRateMax int     `yaml:"heart_rate_max"`
	HRVMax       float64 `yaml:"hrv_max"`
	VO2MaxMin    float64 `yaml:"vo2_max_min"`
	VO2MaxMax    float64 `yaml:"vo2_max_max"`

	SystolicMin  int `yaml:"systolic_min"`
	SystolicMax  int `yaml:"systolic_max"`
	DiastolicMin int `yaml:"diastolic_min"`
	DiastolicMax int `yaml:"diastolic_max"`

	SleepEfficiencyMin            float64 `yaml:"sleep_efficiency_min"`
	SleepEfficiencyMax            float64 `yaml:"sleep_efficiency_max"`
	SleepDurationToleranceMinutes int     `yaml:"sleep_duration_tolerance_minutes"`
	SleepMaxDurationHours         int     `yaml:"sleep_max_duration_hours"`

	StepCountMin  int     `yaml:"step_count_min"`
	StepCountMax  int     `yaml:"step_count_max"`
	DistanceMaxKm float64 `yaml:"distance_max_km"`
	CaloriesMax   float64 `yaml:"calories_max"`

	LatitudeMin  float64 `yaml:"latitude_min"`
	LatitudeMax  float64 `yaml:"latitude_max"`
	LongitudeMin float64 `yaml:"longitude_min"`
	LongitudeMax float64 `yaml:"longitude_max"`

	WorkoutHeartRateMin     int `yaml:"workout_heart_rate_min"`
	WorkoutHeartRateMax     int `yaml:"workout_heart_rate_max"`
	WorkoutMaxDurationHours int `yaml:"workout_max_duration_hours"`

	BloodGlucoseMin float64 `yaml:"blood_glucose_min"`
	BloodGlucoseMax float64 `yaml:"blood_glucose_max"`
	InsulinMaxUnits float64 `yaml:"insulin_max_units"`
	BloodAlcoholMax float64 `yaml:"blood_alcohol_max"`

	RespiratoryRateMin        float64 `yaml:"respiratory_rate_min"`
	RespiratoryRateMax        float64 `yaml:"respiratory_rate_max"`
	OxygenSaturationMin       float64 `yaml:"oxygen_saturation_min"`
	OxygenSaturationMax       float64 `yaml:"oxygen_saturation_max"`
	ForcedVitalCapacityMin    float64 `yaml:"forced_vital_capacity_min"`
	ForcedVitalCapacityMax    float64 `yaml:"forced_vital_capacity_max"`
	PeakExpiratoryFlowRateMin float64 `yaml:"peak_expiratory_flow_rate_min"`
	PeakExpiratoryFlowRateMax float64 `yaml:"peak_expiratory_flow_rate_max"`

	BodyTemperatureMin float64 `yaml:"body_temperature_min"`
	BodyTemperatureMax float64 `yaml:"body_temperature_max"`
	BodyWeightMinKg    float64 `yaml:"body_weight_min_kg"`
	BodyWeightMaxKg    float64 `yaml:"body_weight_max_kg"`
	BMIMin             float64 `yaml:"bmi_min"`
	BMIMax             float64 `yaml:"bmi_max"`
	BodyFatMinPercent  float64 `yaml:"body_fat_min_percent"`
	BodyFatMaxPercent  float64 `yaml:"body_fat_max_percent"`
	HeightMinCm        float64 `yaml:"height_min_cm"`
	HeightMaxCm        float64 `yaml:"height_max_cm"`

	AudioExposureMaxDb    float64 `yaml:"audio_exposure_max_db"`
	UVIndexMax            float64 `yaml:"uv_index_max"`
	AmbientTemperatureMin float64 `yaml:"ambient_temperature_min"`
	AmbientTemperatureMax float64 `yaml:"ambient_temperature_max"`
	AirPressureMinHpa     float64 `yaml:"air_pressure_min_hpa"`
	AirPressureMaxHpa     float64 `yaml:"air_pressure_max_hpa"`

	MindfulnessMaxMinutes int `yaml:"mindfulness_max_minutes"`
	WellbeingScaleMin     int `yaml:"wellbeing_scale_min"`
	WellbeingScaleMax     int `yaml:"wellbeing_scale_max"`
	SymptomMaxMinutes     int `yaml:"symptom_max_minutes"`
}

// DefaultValidationConfig returns the built-in bounds.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		HeartRateMin: 15,
		HeartRateMax: 300,
		HRVMax:       500,
		VO2MaxMin:    10,
		VO2MaxMax:    100,

		SystolicMin:  50,
		SystolicMax:  250,
		DiastolicMin: 30,
		DiastolicMax: 150,

		SleepEfficiencyMin:            0,
		SleepEfficiencyMax:            100,
		SleepDurationToleranceMinutes: 60,
		SleepMaxDurationHours:         24,

		StepCountMin:  0,
		StepCountMax:  200_000,
		DistanceMaxKm: 500,
		CaloriesMax:   20_000,

		LatitudeMin:  -90,
		LatitudeMax:  90,
		LongitudeMin: -180,
		LongitudeMax: 180,

		WorkoutHeartRateMin:     15,
		WorkoutHeartRateMax:     300,
		WorkoutMaxDurationHours: 24,

		BloodGlucoseMin: 30,
		BloodGlucoseMax: 600,
		InsulinMaxUnits: 100,
		BloodAlcoholMax: 0.5,

		RespiratoryRateMin:        5,
		RespiratoryRateMax:        60,
		OxygenSaturationMin:       60,
		OxygenSaturationMax:       100,
		ForcedVitalCapacityMin:    1,
		ForcedVitalCapacityMax:    8,
		PeakExpiratoryFlowRateMin: 50,
		PeakExpiratoryFlowRateMax: 800,

		BodyTemperatureMin: 25,
		BodyTemperatureMax: 45,
		BodyWeightMinKg:    20,
		BodyWeightMaxKg:    500,
		BMIMin:             15,
		BMIMax:             50,
		BodyFatMinPercent:  3,
		BodyFatMaxPercent:  50,
		HeightMinCm:        50,
		HeightMaxCm:        300,

		AudioExposureMaxDb:    140,
		UVIndexMax:            20,
		AmbientTemperatureMin: -90,
		AmbientTemperatureMax: 70,
		AirPressureMinHpa:     300,
		AirPressureMaxHpa:     1100,

		MindfulnessMaxMinutes: 720,
		WellbeingScaleMin:     1,
		WellbeingScaleMax:     10,
		SymptomMaxMinutes:     10080,
	}
}

// ValidationConfigFromEnv reads VALIDATION_<FIELD>_MIN/MAX overrides on top of the defaults.
func ValidationConfigFromEnv() ValidationConfig {
	d := DefaultValidationConfig()
	return ValidationConfig{
		HeartRateMin: parseInt("VALIDATION_HEART_RATE_MIN", d.HeartRateMin),
		HeartRateMax: parseInt("VALIDATION_HEART_RATE_MAX", d.HeartRateMax),
		HRVMax:       parseFloat("VALIDATION_HRV_MAX", d.HRVMax),
		VO2MaxMin:    parseFloat("VALIDATION_VO2_MAX_MIN", d.VO2MaxMin),
		VO2MaxMax:    parseFloat("VALIDATION_VO2_MAX_MAX", d.VO2MaxMax),

		SystolicMin:  parseInt("VALIDATION_SYSTOLIC_MIN", d.SystolicMin),
		SystolicMax:  parseInt("VALIDATION_SYSTOLIC_MAX", d.SystolicMax),
		DiastolicMin: parseInt("VALIDATION_DIASTOLIC_MIN", d.DiastolicMin),
		DiastolicMax: parseInt("VALIDATION_DIASTOLIC_MAX", d.DiastolicMax),

		SleepEfficiencyMin:            parseFloat("VALIDATION_SLEEP_EFFICIENCY_MIN", d.SleepEfficiencyMin),
		SleepEfficiencyMax:            parseFloat("VALIDATION_SLEEP_EFFICIENCY_MAX", d.SleepEfficiencyMax),
		SleepDurationToleranceMinutes: parseInt("VALIDATION_SLEEP_DURATION_TOLERANCE_MINUTES", d.SleepDurationToleranceMinutes),
		SleepMaxDurationHours:         parseInt("VALIDATION_SLEEP_MAX_DURATION_HOURS", d.SleepMaxDurationHours),

		StepCountMin:  parseInt("VALIDATION_STEP_COUNT_MIN", d.StepCountMin),
		StepCountMax:  parseInt("VALIDATION_STEP_COUNT_MAX", d.StepCountMax),
		DistanceMaxKm: parseFloat("VALIDATION_DISTANCE_MAX_KM", d.DistanceMaxKm),
		CaloriesMax:   parseFloat("VALIDATION_CALORIES_MAX", d.CaloriesMax),

		LatitudeMin:  parseFloat("VALIDATION_LATITUDE_MIN", d.LatitudeMin),
		LatitudeMax:  parseFloat("VALIDATION_LATITUDE_MAX", d.LatitudeMax),
		LongitudeMin: parseFloat("VALIDATION_LONGITUDE_MIN", d.LongitudeMin),
		LongitudeMax: parseFloat("VALIDATION_LONGITUDE_MAX", d.LongitudeMax),

		WorkoutHeartRateMin:     parseInt("VALIDATION_WORKOUT_HEART_RATE_MIN", d.WorkoutHeartRateMin),
		WorkoutHeartRateMax:     parseInt("VALIDATION_WORKOUT_HEART_RATE_MAX", d.WorkoutHeartRateMax),
		WorkoutMaxDurationHours: parseInt("VALIDATION_WORKOUT_MAX_DURATION_HOURS", d.WorkoutMaxDurationHours),

		BloodGlucoseMin: parseFloat("VALIDATION_BLOOD_GLUCOSE_MIN", d.BloodGlucoseMin),
		BloodGlucoseMax: parseFloat("VALIDATION_BLOOD_GLUCOSE_MAX", d.BloodGlucoseMax),
		InsulinMaxUnits: parseFloat("VALIDATION_INSULIN_MAX_UNITS", d.InsulinMaxUnits),
		BloodAlcoholMax: parseFloat("VALIDATION_BLOOD_ALCOHOL_MAX", d.BloodAlcoholMax),

		RespiratoryRateMin:        parseFloat("VALIDATION_RESPIRATORY_RATE_MIN", d.RespiratoryRateMin),
		RespiratoryRateMax:        parseFloat("VALIDATION_RESPIRATORY_RATE_MAX", d.RespiratoryRateMax),
		OxygenSaturationMin:       parseFloat("VALIDATION_OXYGEN_SATURATION_MIN", d.OxygenSaturationMin),
		OxygenSaturationMax:       parseFloat("VALIDATION_OXYGEN_SATURATION_MAX", d.OxygenSaturationMax),
		ForcedVitalCapacityMin:    parseFloat("VALIDATION_FORCED_VITAL_CAPACITY_MIN", d.ForcedVitalCapacityMin),
		ForcedVitalCapacityMax:    parseFloat("VALIDATION_FORCED_VITAL_CAPACITY_MAX", d.ForcedVitalCapacityMax),
		PeakExpiratoryFlowRateMin: parseFloat("VALIDATION_PEAK_EXPIRATORY_FLOW_RATE_MIN", d.PeakExpiratoryFlowRateMin),
		PeakExpiratoryFlowRateMax: parseFloat("VALIDATION_PEAK_EXPIRATORY_FLOW_RATE_MAX", d.PeakExpiratoryFlowRateMax),

		BodyTemperatureMin: parseFloat("VALIDATION_BODY_TEMPERATURE_MIN", d.BodyTemperatureMin),
		BodyTemperatureMax: parseFloat("VALIDATION_BODY_TEMPERATURE_MAX", d.BodyTemperatureMax),
		BodyWeightMinKg:    parseFloat("VALIDATION_BODY_WEIGHT_MIN_KG", d.BodyWeightMinKg),
		BodyWeightMaxKg:    parseFloat("VALIDATION_BODY_WEIGHT_MAX_KG", d.BodyWeightMaxKg),
		BMIMin:             parseFloat("VALIDATION_BMI_MIN", d.BMIMin),
		BMIMax:             parseFloat("VALIDATION_BMI_MAX", d.BMIMax),
		BodyFatMinPercent:  parseFloat("VALIDATION_BODY_FAT_MIN_PERCENT", d.BodyFatMinPercent),
		BodyFatMaxPercent:  parseFloat("VALIDATION_BODY_FAT_MAX_PERCENT", d.BodyFatMaxPercent),
		HeightMinCm:        parseFloat("VALIDATION_HEIGHT_MIN_CM", d.HeightMinCm),
		HeightMaxCm:        parseFloat("VALIDATION_HEIGHT_MAX_CM", d.HeightMaxCm),

		AudioExposureMaxDb:    parseFloat("VALIDATION_AUDIO_EXPOSURE_MAX_DB", d.AudioExposureMaxDb),
		UVIndexMax:            parseFloat("VALIDATION_UV_INDEX_MAX", d.UVIndexMax),
		AmbientTemperatureMin: parseFloat("VALIDATION_AMBIENT_TEMPERATURE_MIN", d.AmbientTemperatureMin),
		AmbientTemperatureMax: parseFloat("VALIDATION_AMBIENT_TEMPERATURE_MAX", d.AmbientTemperatureMax),
		AirPressureMinHpa:     parseFloat("VALIDATION_AIR_PRESSURE_MIN_HPA", d.AirPressureMinHpa),
		AirPressureMaxHpa:     parseFloat("VALIDATION_AIR_PRESSURE_MAX_HPA", d.AirPressureMaxHpa),

		MindfulnessMaxMinutes: parseInt("VALIDATION_MINDFULNESS_MAX_MINUTES", d.MindfulnessMaxMinutes),
		WellbeingScaleMin:     parseInt("VALIDATION_WELLBEING_SCALE_MIN", d.WellbeingScaleMin),
		WellbeingScaleMax:     parseInt("VALIDATION_WELLBEING_SCALE_MAX", d.WellbeingScaleMax),
		SymptomMaxMinutes:     parseInt("VALIDATION_SYMPTOM_MAX_MINUTES", d.SymptomMaxMinutes),
	}
}

type boundPair struct {
	name     string
	min, max float64
}

// Validate checks every min/max pair and the domain-constrained ranges.
func (c *ValidationConfig) Validate() error {
	pairs := []boundPair{
		{"heart_rate", float64(c.HeartRateMin), float64(c.HeartRateMax)},
		{"vo2_max", c.VO2MaxMin, c.VO2MaxMax},
		{"systolic", float64(c.SystolicMin), float64(c.SystolicMax)},
		{"diastolic", float64(c.DiastolicMin), float64(c.DiastolicMax)},
		{"sleep_efficiency", c.SleepEfficiencyMin, c.SleepEfficiencyMax},
		{"step_count", float64(c.StepCountMin), float64(c.StepCountMax)},
		{"latitude", c.LatitudeMin, c.LatitudeMax},
		{"longitude", c.LongitudeMin, c.LongitudeMax},
		{"workout_heart_rate", float64(c.WorkoutHeartRateMin), float64(c.WorkoutHeartRateMax)},
		{"blood_glucose", c.BloodGlucoseMin, c.BloodGlucoseMax},
		{"respiratory_rate", c.RespiratoryRateMin, c.RespiratoryRateMax},
		{"oxygen_saturation", c.OxygenSaturationMin, c.OxygenSaturationMax},
		{"forced_vital_capacity", c.ForcedVitalCapacityMin, c.ForcedVitalCapacityMax},
		{"peak_expiratory_flow_rate", c.PeakExpiratoryFlowRateMin, c.PeakExpiratoryFlowRateMax},
		{"body_temperature", c.BodyTemperatureMin, c.BodyTemperatureMax},
		{"body_weight", c.BodyWeightMinKg, c.BodyWeightMaxKg},
		{"bmi", c.BMIMin, c.BMIMax},
		{"body_fat", c.BodyFatMinPercent, c.BodyFatMaxPercent},
		{"height", c.HeightMinCm, c.HeightMaxCm},
		{"ambient_temperature", c.AmbientTemperatureMin, c.AmbientTemperatureMax},
		{"air_pressure", c.AirPressureMinHpa, c.AirPressureMaxHpa},
		{"wellbeing_scale", float64(c.WellbeingScaleMin), float64(c.WellbeingScaleMax)},
	}
	for _, p := range pairs {
		if p.min > p.max {
			return fmt.Errorf("%s: min %v greater than max %v", p.name, p.min, p.max)
		}
	}

	if c.LatitudeMin < -90 || c.LatitudeMax > 90 {
		return errors.New("latitude bounds must lie within [-90, 90]")
	}
	if c.LongitudeMin < -180 || c.LongitudeMax > 180 {
		return errors.New("longitude bounds must lie within [-180, 180]")
	}
	percents := []boundPair{
		{"sleep_efficiency", c.SleepEfficiencyMin, c.SleepEfficiencyMax},
		{"oxygen_saturation", c.OxygenSaturationMin, c.OxygenSaturationMax},
		{"body_fat", c.BodyFatMinPercent, c.BodyFatMaxPercent},
	}
	for _, p := range percents {
		if p.min < 0 || p.max > 100 {
			return fmt.Errorf("%s bounds must lie within [0, 100]", p.name)
		}
	}
	if c.StepCountMin < 0 || c.HeartRateMin < 0 || c.WorkoutHeartRateMin < 0 {
		return errors.New("count and rate minimums must be non-negative")
	}
	if c.SleepDurationToleranceMinutes < 0 {
		return errors.New("sleep duration tolerance must be non-negative")
	}
	if c.SleepMaxDurationHours <= 0 || c.WorkoutMaxDurationHours <= 0 {
		return errors.New("maximum durations must be positive")
	}
	if c.DistanceMaxKm <= 0 || c.CaloriesMax <= 0 || c.InsulinMaxUnits <= 0 {
		return errors.New("distance, calorie and insulin maximums must be positive")
	}
	return nil
}
