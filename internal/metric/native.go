package metric

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

var nativePrefixes = []string{
	"HKQuantityTypeIdentifier",
	"HKCategoryTypeIdentifier",
	"HKCorrelationTypeIdentifier",
	"HKDataTypeIdentifier",
	"HKWorkoutTypeIdentifier",
}

// NativeName reduces a device identifier to its simplified snake_case form:
// "HKQuantityTypeIdentifierHeartRateVariabilitySDNN" and
// "heart_rate_variability_sdnn" both become "heart_rate_variability_sdnn".
func NativeName(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range nativePrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}
	return camelToSnake(s)
}

func camelToSnake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

type nativeMetric struct {
	Name  string        `json:"name"`
	Units string        `json:"units"`
	Data  []nativePoint `json:"data"`
}

type nativePoint struct {
	Date   string          `json:"date"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Qty    *float64        `json:"qty"`
	Value  json.RawMessage `json:"value"`
	Source string          `json:"source"`

	Min *float64 `json:"Min"`
	Avg *float64 `json:"Avg"`
	Max *float64 `json:"Max"`

	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`

	SleepStart string   `json:"sleepStart"`
	SleepEnd   string   `json:"sleepEnd"`
	InBedStart string   `json:"inBedStart"`
	InBedEnd   string   `json:"inBedEnd"`
	TotalSleep *float64 `json:"totalSleep"`
	Asleep     *float64 `json:"asleep"`
	Deep       *float64 `json:"deep"`
	REM        *float64 `json:"rem"`
	Core       *float64 `json:"core"`
	Awake      *float64 `json:"awake"`
}

// time returns the point's instant from the first populated date field.
func (p *nativePoint) time() (time.Time, error) {
	for _, s := range []string{p.Date, p.Start, p.SleepStart, p.InBedStart} {
		if s != "" {
			return ParseTimestamp(s)
		}
	}
	return time.Time{}, fmt.Errorf("point has no date")
}

// number returns qty, falling back to Avg and then a numeric value.
func (p *nativePoint) number() (float64, bool) {
	if p.Qty != nil {
		return *p.Qty, true
	}
	if p.Avg != nil {
		return *p.Avg, true
	}
	var f float64
	if len(p.Value) > 0 && json.Unmarshal(p.Value, &f) == nil {
		return f, true
	}
	return 0, false
}

func (p *nativePoint) text() string {
	var s string
	if len(p.Value) > 0 && json.Unmarshal(p.Value, &s) == nil {
		return s
	}
	return ""
}

func (p *nativePoint) source() *string {
	if p.Source == "" {
		return nil
	}
	s := p.Source
	return &s
}

type nativeKey struct {
	kind Kind
	at   int64
	end  int64
	tag  string
}

type nativeBuilder struct {
	index    int
	items    []Item
	byKey    map[nativeKey]Metric
	rejected []Rejection
	skipped  map[string]int
}

func newNativeBuilder() *nativeBuilder {
	return &nativeBuilder{byKey: map[nativeKey]Metric{}, skipped: map[string]int{}}
}

// record returns the metric already built for k, or stores a new one.
// Points sharing a key are merged into one record.
func record[T Metric](b *nativeBuilder, k nativeKey, create func() T) T {
	if m, ok := b.byKey[k]; ok {
		return m.(T)
	}
	m := create()
	b.byKey[k] = m
	b.items = append(b.items, Item{Index: b.index, Metric: m})
	return m
}

func (b *nativeBuilder) reject(name, msg string) {
	b.rejected = append(b.rejected, Rejection{Variant: name, Index: b.index, Message: msg})
}

func (b *nativeBuilder) addMetric(raw json.RawMessage) {
	var nm nativeMetric
	if err := json.Unmarshal(raw, &nm); err != nil {
		b.reject(nm.Name, "decode: "+err.Error())
		return
	}
	name := NativeName(nm.Name)
	handle, ok := nativeHandlers[name]
	if !ok {
		if st := SymptomType(name); st.IsValid() {
			handle = symptomHandler(st)
		} else {
			b.skipped[nm.Name] += len(nm.Data)
			return
		}
	}
	for i := range nm.Data {
		p := &nm.Data[i]
		at, err := p.time()
		if err != nil {
			b.reject(nm.Name, err.Error())
			continue
		}
		if err := handle(b, at, p, nm.Units); err != nil {
			b.reject(nm.Name, err.Error())
		}
	}
}

type nativeHandler func(b *nativeBuilder, at time.Time, p *nativePoint, units string) error

func round(f float64) int { return int(math.Round(f)) }

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func addInt(dst **int, v int) { *dst = intPtr(v + deref(*dst)) }

func addFloat(dst **float64, v float64) {
	var cur float64
	if *dst != nil {
		cur = **dst
	}
	*dst = floatPtr(cur + v)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func quantity(p *nativePoint) (float64, error) {
	v, ok := p.number()
	if !ok {
		return 0, fmt.Errorf("point has no quantity")
	}
	return v, nil
}

// scalar adapts apply into a handler for single-quantity points.
func scalar(apply func(b *nativeBuilder, at time.Time, v float64, units string, src *string)) nativeHandler {
	return func(b *nativeBuilder, at time.Time, p *nativePoint, units string) error {
		v, err := quantity(p)
		if err != nil {
			return err
		}
		apply(b, at, v, units, p.source())
		return nil
	}
}

func heartRate(b *nativeBuilder, at time.Time, src *string) *HeartRate {
	m := record(b, nativeKey{kind: KindHeartRate, at: at.UnixNano()}, func() *HeartRate {
		return &HeartRate{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func bloodPressure(b *nativeBuilder, at time.Time, src *string) *BloodPressure {
	m := record(b, nativeKey{kind: KindBloodPressure, at: at.UnixNano()}, func() *BloodPressure {
		return &BloodPressure{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func activity(b *nativeBuilder, at time.Time, src *string) *Activity {
	day := DateOf(at)
	m := record(b, nativeKey{kind: KindActivity, at: day.UnixNano()}, func() *Activity {
		return &Activity{RecordedDate: day}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func body(b *nativeBuilder, at time.Time, src *string) *BodyMeasurement {
	m := record(b, nativeKey{kind: KindBodyMeasurement, at: at.UnixNano()}, func() *BodyMeasurement {
		return &BodyMeasurement{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func metabolic(b *nativeBuilder, at time.Time, src *string) *Metabolic {
	m := record(b, nativeKey{kind: KindMetabolic, at: at.UnixNano()}, func() *Metabolic {
		return &Metabolic{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func respiratory(b *nativeBuilder, at time.Time, src *string) *Respiratory {
	m := record(b, nativeKey{kind: KindRespiratory, at: at.UnixNano()}, func() *Respiratory {
		return &Respiratory{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func nutrition(b *nativeBuilder, at time.Time, src *string) *Nutrition {
	m := record(b, nativeKey{kind: KindNutrition, at: at.UnixNano()}, func() *Nutrition {
		return &Nutrition{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func environmental(b *nativeBuilder, at time.Time, src *string) *Environmental {
	m := record(b, nativeKey{kind: KindEnvironmental, at: at.UnixNano()}, func() *Environmental {
		return &Environmental{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func audio(b *nativeBuilder, at time.Time, src *string) *AudioExposure {
	m := record(b, nativeKey{kind: KindAudioExposure, at: at.UnixNano()}, func() *AudioExposure {
		return &AudioExposure{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func mental(b *nativeBuilder, at time.Time, src *string) *MentalHealth {
	m := record(b, nativeKey{kind: KindMentalHealth, at: at.UnixNano()}, func() *MentalHealth {
		return &MentalHealth{RecordedAt: at}
	})
	if src != nil {
		m.SourceDevice = src
	}
	return m
}

func heartRateField(field func(m *HeartRate) **int) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		*field(heartRate(b, at, src)) = intPtr(round(v))
	})
}

func activitySum(field func(m *Activity) **float64, conv func(float64, string) float64) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, units string, src *string) {
		if conv != nil {
			v = conv(v, units)
		}
		addFloat(field(activity(b, at, src)), v)
	})
}

func activityCount(field func(m *Activity) **int, conv func(float64, string) float64) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, units string, src *string) {
		if conv != nil {
			v = conv(v, units)
		}
		addInt(field(activity(b, at, src)), round(v))
	})
}

func bodyField(field func(m *BodyMeasurement) **float64, conv func(float64, string) float64) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, units string, src *string) {
		if conv != nil {
			v = conv(v, units)
		}
		*field(body(b, at, src)) = floatPtr(v)
	})
}

func nutrient(field func(m *Nutrition) **float64) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		*field(nutrition(b, at, src)) = floatPtr(v)
	})
}

func respiratoryField(field func(m *Respiratory) **float64, conv func(float64) float64) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		if conv != nil {
			v = conv(v)
		}
		*field(respiratory(b, at, src)) = floatPtr(v)
	})
}

func handleBloodPressure(b *nativeBuilder, at time.Time, p *nativePoint, _ string) error {
	if p.Systolic == nil || p.Diastolic == nil {
		return fmt.Errorf("blood pressure point needs systolic and diastolic")
	}
	m := bloodPressure(b, at, p.source())
	m.Systolic = round(*p.Systolic)
	m.Diastolic = round(*p.Diastolic)
	return nil
}

func bloodPressureSide(systolic bool) nativeHandler {
	return scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		m := bloodPressure(b, at, src)
		if systolic {
			m.Systolic = round(v)
		} else {
			m.Diastolic = round(v)
		}
	})
}

func handleSleep(b *nativeBuilder, at time.Time, p *nativePoint, units string) error {
	start, end := at, time.Time{}
	for _, s := range []string{p.SleepEnd, p.InBedEnd, p.End} {
		if s != "" {
			t, err := ParseTimestamp(s)
			if err != nil {
				return err
			}
			end = t
			break
		}
	}
	if p.InBedStart != "" {
		if t, err := ParseTimestamp(p.InBedStart); err == nil && t.Before(start) {
			start = t
		}
	}
	if end.IsZero() {
		return fmt.Errorf("sleep point has no end")
	}
	if units == "" {
		units = "hr"
	}
	mins := func(v *float64) *int {
		if v == nil {
			return nil
		}
		return intPtr(round(toMinutes(*v, units)))
	}
	m := record(b, nativeKey{kind: KindSleep, at: start.UnixNano(), end: end.UnixNano()}, func() *Sleep {
		return &Sleep{SleepStart: start, SleepEnd: end}
	})
	total := p.TotalSleep
	if total == nil {
		total = p.Asleep
	}
	if total == nil {
		total = p.Qty
	}
	m.DurationMinutes = mins(total)
	m.DeepSleepMinutes = mins(p.Deep)
	m.RemSleepMinutes = mins(p.REM)
	m.LightSleepMinutes = mins(p.Core)
	m.AwakeMinutes = mins(p.Awake)
	m.Efficiency = m.EffectiveEfficiency()
	if src := p.source(); src != nil {
		m.SourceDevice = src
	}
	return nil
}

func handleStandHour(b *nativeBuilder, at time.Time, p *nativePoint, _ string) error {
	stood := strings.EqualFold(p.text(), "stood")
	if v, ok := p.number(); ok {
		stood = v > 0
	}
	m := activity(b, at, p.source())
	if stood || m.AppleStandHourAchieved == nil {
		m.AppleStandHourAchieved = &stood
	}
	return nil
}

func handleMindful(b *nativeBuilder, at time.Time, p *nativePoint, units string) error {
	var minutes int
	if v, ok := p.number(); ok {
		if units == "" {
			units = "min"
		}
		minutes = round(toMinutes(v, units))
	} else if p.End != "" {
		end, err := ParseTimestamp(p.End)
		if err != nil {
			return err
		}
		minutes = round(end.Sub(at).Minutes())
	}
	m := record(b, nativeKey{kind: KindMindfulness, at: at.UnixNano()}, func() *Mindfulness {
		return &Mindfulness{RecordedAt: at, SessionType: SessionMeditation}
	})
	m.DurationMinutes += minutes
	if src := p.source(); src != nil {
		m.SourceDevice = src
	}
	return nil
}

func heartRateEvent(t HeartRateEventType, severity CardiacEventSeverity) nativeHandler {
	return func(b *nativeBuilder, at time.Time, p *nativePoint, _ string) error {
		m := record(b, nativeKey{kind: KindHeartRateEvent, at: at.UnixNano(), tag: string(t)}, func() *HeartRateEvent {
			return &HeartRateEvent{EventOccurredAt: at, EventType: t, Severity: severity, IsConfirmed: true}
		})
		if v, ok := p.number(); ok {
			m.HeartRateAtEvent = intPtr(round(v))
		}
		if p.End != "" {
			if end, err := ParseTimestamp(p.End); err == nil && end.After(at) {
				m.EventDurationMinutes = intPtr(round(end.Sub(at).Minutes()))
			}
		}
		m.SourceDevice = p.source()
		return nil
	}
}

func handleFall(b *nativeBuilder, at time.Time, p *nativePoint, _ string) error {
	if v, ok := p.number(); ok && v <= 0 {
		return nil
	}
	m := record(b, nativeKey{kind: KindSafetyEvent, at: at.UnixNano(), tag: string(SafetyFallDetected)}, func() *SafetyEvent {
		return &SafetyEvent{RecordedAt: at, EventType: SafetyFallDetected}
	})
	m.SourceDevice = p.source()
	return nil
}

func handleMood(b *nativeBuilder, at time.Time, p *nativePoint, _ string) error {
	var mood MoodRating
	if v, ok := p.number(); ok {
		r, valid := MoodFromScore(round(v))
		if !valid {
			return fmt.Errorf("mood score %g outside [1, 7]", v)
		}
		mood = r
	} else {
		mood = MoodRating(normalizeToken(p.text()))
	}
	m := mental(b, at, p.source())
	m.MoodRating = &mood
	return nil
}

func symptomHandler(st SymptomType) nativeHandler {
	return func(b *nativeBuilder, at time.Time, p *nativePoint, _ string) error {
		sev := ParseSymptomSeverity(p.text())
		if sev == SeverityNotPresent {
			return nil
		}
		m := record(b, nativeKey{kind: KindSymptom, at: at.UnixNano(), tag: string(st)}, func() *Symptom {
			return &Symptom{RecordedAt: at, SymptomType: st}
		})
		m.Severity = sev
		if p.End != "" {
			if end, err := ParseTimestamp(p.End); err == nil && end.After(at) {
				m.DurationMinutes = intPtr(round(end.Sub(at).Minutes()))
			}
		}
		m.SourceDevice = p.source()
		return nil
	}
}

var nativeHandlers = map[string]nativeHandler{}

func register(h nativeHandler, names ...string) {
	for _, n := range names {
		nativeHandlers[n] = h
	}
}

func init() {
	register(heartRateField(func(m *HeartRate) **int { return &m.HeartRate }), "heart_rate")
	register(heartRateField(func(m *HeartRate) **int { return &m.RestingHeartRate }), "resting_heart_rate")
	register(heartRateField(func(m *HeartRate) **int { return &m.WalkingHeartRateAverage }), "walking_heart_rate_average")
	register(heartRateField(func(m *HeartRate) **int { return &m.HeartRateRecoveryOneMinute }), "heart_rate_recovery_one_minute")
	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		heartRate(b, at, src).HeartRateVariability = floatPtr(v)
	}), "heart_rate_variability", "heart_rate_variability_sdnn")
	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		heartRate(b, at, src).VO2Max = floatPtr(v)
	}), "vo2_max")

	register(handleBloodPressure, "blood_pressure")
	register(bloodPressureSide(true), "blood_pressure_systolic")
	register(bloodPressureSide(false), "blood_pressure_diastolic")

	register(handleSleep, "sleep_analysis", "sleep")

	register(activityCount(func(m *Activity) **int { return &m.StepCount }, nil), "step_count", "steps")
	register(activitySum(func(m *Activity) **float64 { return &m.DistanceMeters }, toMeters),
		"walking_running_distance", "distance_walking_running")
	register(activitySum(func(m *Activity) **float64 { return &m.ActiveEnergyBurnedKcal }, toKcal),
		"active_energy", "active_energy_burned")
	register(activitySum(func(m *Activity) **float64 { return &m.BasalEnergyBurnedKcal }, toKcal),
		"basal_energy_burned", "resting_energy")
	register(activityCount(func(m *Activity) **int { return &m.FlightsClimbed }, nil), "flights_climbed")
	register(activitySum(func(m *Activity) **float64 { return &m.DistanceCyclingMeters }, toMeters),
		"distance_cycling", "cycling_distance")
	register(activitySum(func(m *Activity) **float64 { return &m.DistanceSwimmingMeters }, toMeters),
		"distance_swimming", "swimming_distance")
	register(activitySum(func(m *Activity) **float64 { return &m.DistanceWheelchairMeters }, toMeters),
		"distance_wheelchair", "wheelchair_distance")
	register(activitySum(func(m *Activity) **float64 { return &m.DistanceDownhillSnowSportsMeters }, toMeters),
		"distance_downhill_snow_sports", "downhill_snow_sports_distance")
	register(activityCount(func(m *Activity) **int { return &m.PushCount }, nil), "push_count")
	register(activityCount(func(m *Activity) **int { return &m.SwimmingStrokeCount }, nil), "swimming_stroke_count")
	register(activityCount(func(m *Activity) **int { return &m.NikeFuelPoints }, nil), "nike_fuel")
	register(activityCount(func(m *Activity) **int { return &m.AppleExerciseTimeMinutes }, toMinutes), "apple_exercise_time")
	register(activityCount(func(m *Activity) **int { return &m.AppleStandTimeMinutes }, toMinutes), "apple_stand_time")
	register(activityCount(func(m *Activity) **int { return &m.AppleMoveTimeMinutes }, toMinutes), "apple_move_time")
	register(handleStandHour, "apple_stand_hour")

	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.BodyWeightKg }, toKilograms),
		"body_mass", "weight_body_mass", "weight")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.BodyMassIndex }, nil), "body_mass_index")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.BodyFatPercentage },
		func(v float64, _ string) float64 { return toPercent(v) }), "body_fat_percentage")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.LeanBodyMassKg }, toKilograms), "lean_body_mass")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.HeightCm }, toCentimeters), "height")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.WaistCircumferenceCm }, toCentimeters), "waist_circumference")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.BodyTemperatureCelsius }, toCelsius), "body_temperature")
	register(bodyField(func(m *BodyMeasurement) **float64 { return &m.BasalBodyTemperatureCelsius }, toCelsius), "basal_body_temperature")

	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		metabolic(b, at, src).BloodAlcoholContent = floatPtr(v)
	}), "blood_alcohol_content")
	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		metabolic(b, at, src).InsulinDeliveryUnits = floatPtr(v)
	}), "insulin_delivery")

	register(respiratoryField(func(m *Respiratory) **float64 { return &m.RespiratoryRate }, nil), "respiratory_rate")
	register(respiratoryField(func(m *Respiratory) **float64 { return &m.OxygenSaturation }, toPercent),
		"oxygen_saturation", "blood_oxygen_saturation")
	register(respiratoryField(func(m *Respiratory) **float64 { return &m.ForcedVitalCapacity }, nil), "forced_vital_capacity")
	register(respiratoryField(func(m *Respiratory) **float64 { return &m.PeakExpiratoryFlowRate }, nil), "peak_expiratory_flow_rate")

	register(scalar(func(b *nativeBuilder, at time.Time, v float64, units string, src *string) {
		m := record(b, nativeKey{kind: KindBloodGlucose, at: at.UnixNano()}, func() *BloodGlucose {
			return &BloodGlucose{RecordedAt: at}
		})
		m.BloodGlucoseMgDl = toMgDl(v, units)
		if src != nil {
			m.SourceDevice = src
		}
	}), "blood_glucose")

	register(scalar(func(b *nativeBuilder, at time.Time, v float64, units string, src *string) {
		nutrition(b, at, src).DietaryEnergyConsumed = floatPtr(toKcal(v, units))
	}), "dietary_energy", "dietary_energy_consumed")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryCarbohydrates }), "carbohydrates", "dietary_carbohydrates")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryProtein }), "protein", "dietary_protein")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryFatTotal }), "total_fat", "dietary_fat_total")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryFatSaturated }), "saturated_fat", "dietary_fat_saturated")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryCholesterol }), "cholesterol", "dietary_cholesterol")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietarySodium }), "sodium", "dietary_sodium")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryFiber }), "fiber", "dietary_fiber")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietarySugar }), "dietary_sugar", "sugar")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryWater }), "dietary_water", "water")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryCaffeine }), "caffeine", "dietary_caffeine")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryCalcium }), "calcium", "dietary_calcium")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryIron }), "iron", "dietary_iron")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryVitaminC }), "vitamin_c", "dietary_vitamin_c")
	register(nutrient(func(m *Nutrition) **float64 { return &m.DietaryVitaminD }), "vitamin_d", "dietary_vitamin_d")

	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		audio(b, at, src).EnvironmentalAudioExposureDb = floatPtr(v)
	}), "environmental_audio_exposure")
	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		audio(b, at, src).HeadphoneAudioExposureDb = floatPtr(v)
	}), "headphone_audio_exposure")
	register(scalar(func(b *nativeBuilder, at time.Time, v float64, _ string, src *string) {
		environmental(b, at, src).UVIndex = floatPtr(v)
	}), "uv_exposure", "uv_index")
	register(scalar(func(b *nativeBuilder, at time.Time, v float64, units string, src *string) {
		if units == "" {
			units = "min"
		}
		environmental(b, at, src).TimeInDaylightMinutes = intPtr(round(toMinutes(v, units)))
	}), "time_in_daylight")

	register(handleMindful, "mindful_session", "mindful_minutes")
	register(heartRateEvent(EventHigh, CardiacModerate), "high_heart_rate_event")
	register(heartRateEvent(EventLow, CardiacModerate), "low_heart_rate_event")
	register(heartRateEvent(EventIrregular, CardiacHigh), "irregular_heart_rhythm_event")
	register(handleFall, "number_of_times_fallen", "fall")
	register(handleMood, "state_of_mind", "mood")
}
