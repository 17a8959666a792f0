package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Canonical ---

func TestDecode_CanonicalHeartRate(t *testing.T) {
	body := `{"data":{"metrics":[{"type":"HeartRate","user_id":"0b8e8f8e-3c1f-4b3e-9d1a-2f4b5c6d7e8f","recorded_at":"2025-01-01T10:00:00Z","heart_rate":75,"source_device":"W"}],"workouts":[]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Empty(t, p.Rejected)

	hr, ok := p.Items[0].Metric.(*HeartRate)
	require.True(t, ok)
	assert.Equal(t, 75, *hr.HeartRate)
	assert.Equal(t, "W", *hr.SourceDevice)
	assert.True(t, hr.RecordedAt.Equal(ts("2025-01-01T10:00:00Z")))
}

func TestDecode_CanonicalMixed(t *testing.T) {
	body := `{"data":{"metrics":[
		{"type":"BloodPressure","recorded_at":"2025-01-01T10:00:00Z","systolic":120,"diastolic":80},
		{"type":"Teleportation","recorded_at":"2025-01-01T10:00:00Z"},
		{"type":"Sleep","sleep_start":"not a time","sleep_end":"2025-01-02T06:00:00Z"},
		{"recorded_at":"2025-01-01T10:00:00Z"},
		{"type":"Activity","recorded_date":"2025-01-01","step_count":9000}
	],"workouts":[
		{"workout_type":"Running","started_at":"2025-01-01T07:00:00Z","ended_at":"2025-01-01T07:30:00Z",
		 "route_points":[{"latitude":52,"longitude":4,"timestamp":"2025-01-01T07:01:00Z"}]}
	]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)

	require.Len(t, p.Items, 3)
	assert.Equal(t, KindBloodPressure, p.Items[0].Metric.Kind())
	assert.Equal(t, 0, p.Items[0].Index)
	assert.Equal(t, KindActivity, p.Items[1].Metric.Kind())
	assert.Equal(t, 4, p.Items[1].Index)

	w := p.Items[2].Metric.(*Workout)
	assert.Equal(t, WorkoutType("running"), w.WorkoutType)
	assert.Len(t, w.Route, 1)

	require.Len(t, p.Rejected, 3)
	assert.Equal(t, 1, p.Rejected[0].Index)
	assert.Contains(t, p.Rejected[0].Message, "unsupported metric type")
	assert.Equal(t, "Sleep", p.Rejected[1].Variant)
	assert.Equal(t, 3, p.Rejected[2].Index)
	assert.Equal(t, 6, p.Len())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"data":`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"metrics":[]}`))
	assert.ErrorIs(t, err, ErrMissingData)
}

// --- Device-native ---

func TestDecode_NativeHeartRate(t *testing.T) {
	body := `{"data":{"metrics":[{"name":"HKQuantityTypeIdentifierHeartRate","units":"count/min","data":[{"date":"2025-01-01T10:00:00Z","qty":75,"source":"Watch"}]}],"workouts":[]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 1)

	hr := p.Items[0].Metric.(*HeartRate)
	assert.Equal(t, 75, *hr.HeartRate)
	assert.Equal(t, "Watch", *hr.SourceDevice)
}

func TestDecode_NativeMergesSameInstant(t *testing.T) {
	body := `{"data":{"metrics":[
		{"name":"blood_pressure_systolic","units":"mmHg","data":[{"date":"2025-01-01 10:00:00 +0000","qty":121}]},
		{"name":"HKQuantityTypeIdentifierBloodPressureDiastolic","units":"mmHg","data":[{"date":"2025-01-01 10:00:00 +0000","qty":79}]},
		{"name":"weight_body_mass","units":"lb","data":[{"date":"2025-01-01 08:00:00 +0000","qty":220.462}]},
		{"name":"height","units":"in","data":[{"date":"2025-01-01 08:00:00 +0000","qty":70}]}
	]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 2)

	bp := p.Items[0].Metric.(*BloodPressure)
	assert.Equal(t, 121, bp.Systolic)
	assert.Equal(t, 79, bp.Diastolic)

	body2 := p.Items[1].Metric.(*BodyMeasurement)
	assert.InDelta(t, 100.0, *body2.BodyWeightKg, 0.01)
	assert.InDelta(t, 177.8, *body2.HeightCm, 0.01)
}

func TestDecode_NativeActivitySummedPerDay(t *testing.T) {
	body := `{"data":{"metrics":[
		{"name":"step_count","units":"count","data":[
			{"date":"2025-01-01 08:00:00 +0000","qty":1000},
			{"date":"2025-01-01 18:00:00 +0000","qty":2500},
			{"date":"2025-01-02 08:00:00 +0000","qty":400}
		]},
		{"name":"walking_running_distance","units":"km","data":[{"date":"2025-01-01 09:00:00 +0000","qty":1.5}]}
	]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 2)

	day1 := p.Items[0].Metric.(*Activity)
	assert.Equal(t, "2025-01-01", day1.RecordedDate.String())
	assert.Equal(t, 3500, *day1.StepCount)
	assert.InDelta(t, 1500.0, *day1.DistanceMeters, 0.001)

	day2 := p.Items[1].Metric.(*Activity)
	assert.Equal(t, 400, *day2.StepCount)
}

func TestDecode_NativeConversions(t *testing.T) {
	body := `{"data":{"metrics":[
		{"name":"oxygen_saturation","units":"%","data":[{"date":"2025-01-01T10:00:00Z","qty":0.97}]},
		{"name":"body_temperature","units":"degF","data":[{"date":"2025-01-01T10:00:00Z","qty":98.6}]},
		{"name":"blood_glucose","units":"mmol/L","data":[{"date":"2025-01-01T10:00:00Z","qty":5.5}]},
		{"name":"dietary_energy","units":"kJ","data":[{"date":"2025-01-01T12:00:00Z","qty":4184}]}
	]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 4)

	assert.InDelta(t, 97.0, *p.Items[0].Metric.(*Respiratory).OxygenSaturation, 0.001)
	assert.InDelta(t, 37.0, *p.Items[1].Metric.(*BodyMeasurement).BodyTemperatureCelsius, 0.001)
	assert.InDelta(t, 99.09, p.Items[2].Metric.(*BloodGlucose).BloodGlucoseMgDl, 0.01)
	assert.InDelta(t, 1000.0, *p.Items[3].Metric.(*Nutrition).DietaryEnergyConsumed, 0.001)
}

func TestDecode_NativeSleepAndSymptoms(t *testing.T) {
	body := `{"data":{"metrics":[
		{"name":"sleep_analysis","units":"hr","data":[{"sleepStart":"2025-01-01 22:00:00 +0000","sleepEnd":"2025-01-02 06:00:00 +0000","totalSleep":7.2,"deep":1.5,"rem":1.75,"core":3.5,"awake":0.5,"source":"Watch"}]},
		{"name":"HKCategoryTypeIdentifierHeadache","data":[{"start":"2025-01-01 10:00:00 +0000","end":"2025-01-01 11:30:00 +0000","value":"Moderate"}]},
		{"name":"HKCategoryTypeIdentifierNausea","data":[{"start":"2025-01-01 10:00:00 +0000","value":"Not Present"}]}
	]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 2)

	s := p.Items[0].Metric.(*Sleep)
	assert.Equal(t, 432, *s.DurationMinutes)
	assert.Equal(t, 90, *s.DeepSleepMinutes)
	assert.Equal(t, 210, *s.LightSleepMinutes)
	assert.InDelta(t, 90.0, *s.Efficiency, 0.001)
	assert.NoError(t, s.Validate(cfg()))

	sym := p.Items[1].Metric.(*Symptom)
	assert.Equal(t, SymptomType("headache"), sym.SymptomType)
	assert.Equal(t, SeverityModerate, sym.Severity)
	assert.Equal(t, 90, *sym.DurationMinutes)
}

func TestDecode_NativeUnknownSkipped(t *testing.T) {
	body := `{"data":{"metrics":[
		{"name":"HKQuantityTypeIdentifierAppleWalkingSteadiness","data":[{"date":"2025-01-01T10:00:00Z","qty":0.9},{"date":"2025-01-02T10:00:00Z","qty":0.8}]},
		{"name":"heart_rate","data":[{"date":"whenever","qty":60}]}
	]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Equal(t, 2, p.Skipped["HKQuantityTypeIdentifierAppleWalkingSteadiness"])
	require.Len(t, p.Rejected, 1)
	assert.Equal(t, 1, p.Rejected[0].Index)
}

func TestDecode_NativeWorkout(t *testing.T) {
	body := `{"data":{"metrics":[],"workouts":[{
		"name":"Outdoor Run","start":"2025-01-01 07:00:00 +0000","end":"2025-01-01 07:45:00 +0000","source":"Watch",
		"activeEnergyBurned":{"qty":420,"units":"kcal"},"distance":{"qty":5,"units":"km"},"avgHeartRate":151,
		"route":[
			{"lat":52.0,"lon":4.0,"altitude":3,"timestamp":"2025-01-01 07:01:00 +0000","horizontalAccuracy":5,"speed":2.9},
			{"lat":52.01,"lon":4.0,"altitude":5,"timestamp":"2025-01-01 07:05:00 +0000"}
		]}]}}`
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, p.Items, 1)

	w := p.Items[0].Metric.(*Workout)
	assert.Equal(t, WorkoutType("running"), w.WorkoutType)
	assert.Equal(t, 420.0, *w.TotalEnergyKcal)
	assert.Equal(t, 5000.0, *w.DistanceMeters)
	assert.Equal(t, 151, *w.AvgHeartRate)
	require.Len(t, w.Route, 2)
	assert.Equal(t, 2.9, *w.Route[0].SpeedMPS)
	assert.NoError(t, w.Validate(cfg()))
}

func TestNativeName(t *testing.T) {
	tests := map[string]string{
		"HKQuantityTypeIdentifierHeartRate":                "heart_rate",
		"HKQuantityTypeIdentifierHeartRateVariabilitySDNN": "heart_rate_variability_sdnn",
		"HKQuantityTypeIdentifierVO2Max":                   "vo2_max",
		"HKQuantityTypeIdentifierUVExposure":               "uv_exposure",
		"HKCategoryTypeIdentifierSleepAnalysis":            "sleep_analysis",
		"heart_rate":                                       "heart_rate",
		"Walking Heart Rate Average":                       "walking_heart_rate_average",
	}
	for in, want := range tests {
		assert.Equal(t, want, NativeName(in), in)
	}
}

func TestCanonicalize(t *testing.T) {
	a, err := Canonicalize([]byte("{ \"data\" : { \"metrics\" : [ ] } }"))
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"metrics":[]}}`, string(a))
}
