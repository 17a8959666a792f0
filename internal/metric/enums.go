package metric

import "strings"

// ActivityContext describes what the user was doing when a reading was taken.
type ActivityContext string

const (
	ContextResting   ActivityContext = "resting"
	ContextWalking   ActivityContext = "walking"
	ContextRunning   ActivityContext = "running"
	ContextCycling   ActivityContext = "cycling"
	ContextExercise  ActivityContext = "exercise"
	ContextSleeping  ActivityContext = "sleeping"
	ContextSedentary ActivityContext = "sedentary"
	ContextActive    ActivityContext = "active"
	ContextPostMeal  ActivityContext = "post_meal"
	ContextStressed  ActivityContext = "stressed"
	ContextRecovery  ActivityContext = "recovery"
)

func (c ActivityContext) IsValid() bool {
	switch c {
	case ContextResting, ContextWalking, ContextRunning, ContextCycling, ContextExercise, ContextSleeping,
		ContextSedentary, ContextActive, ContextPostMeal, ContextStressed, ContextRecovery:
		return true
	}
	return false
}

// ParseActivityContext maps device spellings onto the canonical value.
func ParseActivityContext(s string) (ActivityContext, bool) {
	switch normalizeToken(s) {
	case "exercising":
		return ContextExercise, true
	case "sleep":
		return ContextSleeping, true
	case "after_eating":
		return ContextPostMeal, true
	case "stress":
		return ContextStressed, true
	case "recovering":
		return ContextRecovery, true
	}
	c := ActivityContext(normalizeToken(s))
	return c, c.IsValid()
}

// WorkoutCategory groups workout types.
type WorkoutCategory string

const (
	CategoryCardio        WorkoutCategory = "cardio"
	CategoryStrength      WorkoutCategory = "strength"
	CategoryTeamSports    WorkoutCategory = "team_sports"
	CategoryIndividual    WorkoutCategory = "individual_sports"
	CategoryFitnessClass  WorkoutCategory = "fitness_class"
	CategoryWater         WorkoutCategory = "water_sports"
	CategoryWinter        WorkoutCategory = "winter_sports"
	CategoryMindBody      WorkoutCategory = "mind_body"
	CategoryAccessibility WorkoutCategory = "accessibility"
	CategoryRecreation    WorkoutCategory = "recreation"
	CategoryOther         WorkoutCategory = "other"
)

// WorkoutType is the kind of exercise session.
type WorkoutType string

var workoutCategories = map[WorkoutType]WorkoutCategory{
	"walking":        CategoryCardio,
	"running":        CategoryCardio,
	"cycling":        CategoryCardio,
	"elliptical":     CategoryCardio,
	"rowing":         CategoryCardio,
	"stair_climbing": CategoryCardio,
	"hiking":         CategoryCardio,
	"jump_rope":      CategoryCardio,
	"mixed_cardio":   CategoryCardio,
	"hiit":           CategoryCardio,

	"strength_training":             CategoryStrength,
	"traditional_strength_training": CategoryStrength,
	"functional_strength_training":  CategoryStrength,
	"core_training":                 CategoryStrength,
	"cross_training":                CategoryStrength,

	"american_football":   CategoryTeamSports,
	"baseball":            CategoryTeamSports,
	"basketball":          CategoryTeamSports,
	"cricket":             CategoryTeamSports,
	"handball":            CategoryTeamSports,
	"hockey":              CategoryTeamSports,
	"lacrosse":            CategoryTeamSports,
	"rugby":               CategoryTeamSports,
	"soccer":              CategoryTeamSports,
	"softball":            CategoryTeamSports,
	"volleyball":          CategoryTeamSports,
	"australian_football": CategoryTeamSports,

	"badminton":    CategoryIndividual,
	"boxing":       CategoryIndividual,
	"climbing":     CategoryIndividual,
	"fencing":      CategoryIndividual,
	"golf":         CategoryIndividual,
	"martial_arts": CategoryIndividual,
	"racquetball":  CategoryIndividual,
	"squash":       CategoryIndividual,
	"table_tennis": CategoryIndividual,
	"tennis":       CategoryIndividual,
	"pickleball":   CategoryIndividual,

	"dance":         CategoryFitnessClass,
	"barre":         CategoryFitnessClass,
	"step_training": CategoryFitnessClass,
	"kickboxing":    CategoryFitnessClass,
	"cardio_dance":  CategoryFitnessClass,

	"swimming":      CategoryWater,
	"water_fitness": CategoryWater,
	"water_polo":    CategoryWater,
	"surfing":       CategoryWater,
	"paddle_sports": CategoryWater,
	"sailing":       CategoryWater,

	"cross_country_skiing": CategoryWinter,
	"downhill_skiing":      CategoryWinter,
	"snowboarding":         CategoryWinter,
	"skating":              CategoryWinter,
	"snow_sports":          CategoryWinter,

	"yoga":          CategoryMindBody,
	"pilates":       CategoryMindBody,
	"tai_chi":       CategoryMindBody,
	"mind_and_body": CategoryMindBody,
	"flexibility":   CategoryMindBody,
	"cooldown":      CategoryMindBody,

	"wheelchair_walk_pace": CategoryAccessibility,
	"wheelchair_run_pace":  CategoryAccessibility,
	"hand_cycling":         CategoryAccessibility,

	"fishing":           CategoryRecreation,
	"hunting":           CategoryRecreation,
	"play":              CategoryRecreation,
	"equestrian_sports": CategoryRecreation,
	"disc_sports":       CategoryRecreation,
	"fitness_gaming":    CategoryRecreation,

	"sports": CategoryOther,
	"other":  CategoryOther,
}

const WorkoutOther WorkoutType = "other"

func (w WorkoutType) IsValid() bool {
	_, ok := workoutCategories[w]
	return ok
}

// Category returns the group w belongs to; unknown types are CategoryOther.
func (w WorkoutType) Category() WorkoutCategory {
	if c, ok := workoutCategories[w]; ok {
		return c
	}
	return CategoryOther
}

var workoutAliases = map[string]WorkoutType{
	"walk":                             "walking",
	"outdoor_walk":                     "walking",
	"indoor_walk":                      "walking",
	"run":                              "running",
	"outdoor_run":                      "running",
	"indoor_run":                       "running",
	"bike":                             "cycling",
	"biking":                           "cycling",
	"outdoor_cycle":                    "cycling",
	"indoor_cycle":                     "cycling",
	"swim":                             "swimming",
	"pool_swim":                        "swimming",
	"open_water_swim":                  "swimming",
	"strength":                         "strength_training",
	"weights":                          "strength_training",
	"high_intensity_interval_training": "hiit",
	"stairs":                           "stair_climbing",
	"stair_stepper":                    "stair_climbing",
	"social_dance":                     "dance",
	"sport":                            "sports",
}

// ParseWorkoutType maps a device or canonical name onto a WorkoutType.
// Names the table does not know become WorkoutOther.
func ParseWorkoutType(s string) WorkoutType {
	tok := normalizeToken(s)
	if w, ok := workoutAliases[tok]; ok {
		return w
	}
	if w := WorkoutType(tok); w.IsValid() {
		return w
	}
	return WorkoutOther
}

// HeartRateEventType classifies cardiac alerts raised by a device.
type HeartRateEventType string

const (
	EventHigh            HeartRateEventType = "high"
	EventLow             HeartRateEventType = "low"
	EventIrregular       HeartRateEventType = "irregular"
	EventAfib            HeartRateEventType = "afib"
	EventRapidIncrease   HeartRateEventType = "rapid_increase"
	EventSlowRecovery    HeartRateEventType = "slow_recovery"
	EventExerciseAnomaly HeartRateEventType = "exercise_anomaly"
)

func (e HeartRateEventType) IsValid() bool {
	switch e {
	case EventHigh, EventLow, EventIrregular, EventAfib, EventRapidIncrease, EventSlowRecovery, EventExerciseAnomaly:
		return true
	}
	return false
}

// CardiacEventSeverity grades a HeartRateEvent.
type CardiacEventSeverity string

const (
	CardiacLow      CardiacEventSeverity = "low"
	CardiacModerate CardiacEventSeverity = "moderate"
	CardiacHigh     CardiacEventSeverity = "high"
	CardiacCritical CardiacEventSeverity = "critical"
)

func (s CardiacEventSeverity) IsValid() bool {
	switch s {
	case CardiacLow, CardiacModerate, CardiacHigh, CardiacCritical:
		return true
	}
	return false
}

// SymptomType names a self-reported or device-logged symptom.
type SymptomType string

var symptomTypes = map[SymptomType]bool{}

func init() {
	for _, group := range [][]SymptomType{
		// general
		{"fever", "fatigue", "chills", "night_sweats", "weight_loss", "appetite_changes",
			"generalized_body_ache", "dizziness", "fainting", "hot_flashes", "sleep_changes",
			"hair_loss", "dry_skin", "acne"},
		// pain
		{"headache", "abdominal_cramps", "chest_tightness_or_pain", "pelvic_pain",
			"lower_back_pain", "breast_pain", "muscle_pain", "joint_pain"},
		// respiratory
		{"coughing", "shortness_of_breath", "wheezing", "runny_nose", "sinus_congestion",
			"sore_throat", "sneezing", "loss_of_smell"},
		// digestive
		{"nausea", "vomiting", "diarrhea", "constipation", "bloating", "heartburn", "loss_of_taste"},
		// cardiovascular
		{"rapid_pounding_or_fluttering_heartbeat", "skipped_heartbeat"},
		// neurological and mood
		{"memory_lapse", "mood_changes", "anxiety", "brain_fog"},
		// reproductive
		{"bladder_incontinence", "vaginal_dryness", "menstrual_cramps", "spotting", "breast_tenderness"},
		{"other"},
	} {
		for _, s := range group {
			symptomTypes[s] = true
		}
	}
}

func (s SymptomType) IsValid() bool { return symptomTypes[s] }

// SymptomSeverity grades a Symptom.
type SymptomSeverity string

const (
	SeverityNotPresent SymptomSeverity = "not_present"
	SeverityMild       SymptomSeverity = "mild"
	SeverityModerate   SymptomSeverity = "moderate"
	SeveritySevere     SymptomSeverity = "severe"
	SeverityCritical   SymptomSeverity = "critical"
)

func (s SymptomSeverity) IsValid() bool {
	switch s {
	case SeverityNotPresent, SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// ParseSymptomSeverity accepts device spellings such as "Not Present".
// Empty or unknown input maps to SeverityMild.
func ParseSymptomSeverity(s string) SymptomSeverity {
	if v := SymptomSeverity(normalizeToken(s)); v.IsValid() {
		return v
	}
	return SeverityMild
}

// MindfulnessSessionType describes a mindfulness practice.
type MindfulnessSessionType string

const (
	SessionMeditation    MindfulnessSessionType = "meditation"
	SessionBreathing     MindfulnessSessionType = "breathing"
	SessionBodyScan      MindfulnessSessionType = "body_scan"
	SessionVisualization MindfulnessSessionType = "visualization"
	SessionMovement      MindfulnessSessionType = "movement"
	SessionJournaling    MindfulnessSessionType = "journaling"
	SessionOther         MindfulnessSessionType = "other"
)

func (m MindfulnessSessionType) IsValid() bool {
	switch m {
	case SessionMeditation, SessionBreathing, SessionBodyScan, SessionVisualization,
		SessionMovement, SessionJournaling, SessionOther:
		return true
	}
	return false
}

// MoodRating is a seven-point valence scale.
type MoodRating string

const (
	MoodVeryUnpleasant     MoodRating = "very_unpleasant"
	MoodUnpleasant         MoodRating = "unpleasant"
	MoodSlightlyUnpleasant MoodRating = "slightly_unpleasant"
	MoodNeutral            MoodRating = "neutral"
	MoodSlightlyPleasant   MoodRating = "slightly_pleasant"
	MoodPleasant           MoodRating = "pleasant"
	MoodVeryPleasant       MoodRating = "very_pleasant"
)

var moodScale = []MoodRating{
	MoodVeryUnpleasant, MoodUnpleasant, MoodSlightlyUnpleasant, MoodNeutral,
	MoodSlightlyPleasant, MoodPleasant, MoodVeryPleasant,
}

func (m MoodRating) IsValid() bool {
	for _, v := range moodScale {
		if v == m {
			return true
		}
	}
	return false
}

// MoodFromScore maps 1..7 onto the scale.
func MoodFromScore(score int) (MoodRating, bool) {
	if score < 1 || score > len(moodScale) {
		return "", false
	}
	return moodScale[score-1], true
}

// SafetyEventType names a personal-safety event.
type SafetyEventType string

const (
	SafetyFallDetected     SafetyEventType = "fall_detected"
	SafetyEmergencySOS     SafetyEventType = "emergency_sos"
	SafetyCrashDetected    SafetyEventType = "crash_detected"
	SafetyMedicalEmergency SafetyEventType = "medical_emergency"
	SafetyInactivityAlert  SafetyEventType = "inactivity_alert"
)

func (s SafetyEventType) IsValid() bool {
	switch s {
	case SafetyFallDetected, SafetyEmergencySOS, SafetyCrashDetected, SafetyMedicalEmergency, SafetyInactivityAlert:
		return true
	}
	return false
}

// AudioExposureEvent flags a sustained loud-environment notification.
type AudioExposureEvent string

const (
	AudioNone            AudioExposureEvent = "none"
	AudioLoudEnvironment AudioExposureEvent = "loud_environment"
	AudioHeadphoneLimit  AudioExposureEvent = "headphone_limit"
	AudioHearingRisk     AudioExposureEvent = "hearing_risk"
)

func (a AudioExposureEvent) IsValid() bool {
	switch a {
	case AudioNone, AudioLoudEnvironment, AudioHeadphoneLimit, AudioHearingRisk:
		return true
	}
	return false
}

// normalizeToken lowercases s and joins words with underscores.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func (c *ActivityContext) UnmarshalText(b []byte) error {
	if v, ok := ParseActivityContext(string(b)); ok {
		*c = v
		return nil
	}
	*c = ActivityContext(normalizeToken(string(b)))
	return nil
}

func (w *WorkoutType) UnmarshalText(b []byte) error {
	*w = ParseWorkoutType(string(b))
	return nil
}

func (s *SymptomType) UnmarshalText(b []byte) error {
	*s = SymptomType(normalizeToken(string(b)))
	return nil
}

func (s *SymptomSeverity) UnmarshalText(b []byte) error {
	*s = SymptomSeverity(normalizeToken(string(b)))
	return nil
}
