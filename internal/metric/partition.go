package metric

// Partition holds one slice per variant. Add dispatches on the concrete type
// so a mixed list is grouped in a single pass.
type Partition struct {
	HeartRate       []*HeartRate
	BloodPressure   []*BloodPressure
	Sleep           []*Sleep
	Activity        []*Activity
	BodyMeasurement []*BodyMeasurement
	Workout         []*Workout
	WorkoutRoute    []*WorkoutRoutePoint
	Metabolic       []*Metabolic
	Respiratory     []*Respiratory
	BloodGlucose    []*BloodGlucose
	Nutrition       []*Nutrition
	Environmental   []*Environmental
	AudioExposure   []*AudioExposure
	Mindfulness     []*Mindfulness
	MentalHealth    []*MentalHealth
	Symptom         []*Symptom
	HeartRateEvent  []*HeartRateEvent
	SafetyEvent     []*SafetyEvent
}

// Add appends m to its variant slice. A workout is given its ID; its route
// points are added by AttachRoutes.
func (p *Partition) Add(m Metric) {
	switch v := m.(type) {
	case *HeartRate:
		p.HeartRate = append(p.HeartRate, v)
	case *BloodPressure:
		p.BloodPressure = append(p.BloodPressure, v)
	case *Sleep:
		p.Sleep = append(p.Sleep, v)
	case *Activity:
		p.Activity = append(p.Activity, v)
	case *BodyMeasurement:
		p.BodyMeasurement = append(p.BodyMeasurement, v)
	case *Workout:
		v.AssignID()
		p.Workout = append(p.Workout, v)
	case *WorkoutRoutePoint:
		p.WorkoutRoute = append(p.WorkoutRoute, v)
	case *Metabolic:
		p.Metabolic = append(p.Metabolic, v)
	case *Respiratory:
		p.Respiratory = append(p.Respiratory, v)
	case *BloodGlucose:
		p.BloodGlucose = append(p.BloodGlucose, v)
	case *Nutrition:
		p.Nutrition = append(p.Nutrition, v)
	case *Environmental:
		p.Environmental = append(p.Environmental, v)
	case *AudioExposure:
		p.AudioExposure = append(p.AudioExposure, v)
	case *Mindfulness:
		p.Mindfulness = append(p.Mindfulness, v)
	case *MentalHealth:
		p.MentalHealth = append(p.MentalHealth, v)
	case *Symptom:
		p.Symptom = append(p.Symptom, v)
	case *HeartRateEvent:
		p.HeartRateEvent = append(p.HeartRateEvent, v)
	case *SafetyEvent:
		p.SafetyEvent = append(p.SafetyEvent, v)
	}
}

// AttachRoutes appends the route points of every workout in p to
// WorkoutRoute. Call it once duplicate workouts are gone, so each stored
// workout gets exactly its own route.
func (p *Partition) AttachRoutes() {
	for _, w := range p.Workout {
		p.WorkoutRoute = append(p.WorkoutRoute, w.RoutePoints()...)
	}
}

// Counts returns the number of rows held per variant, omitting empty ones.
func (p *Partition) Counts() map[Kind]int {
	counts := map[Kind]int{
		KindHeartRate:       len(p.HeartRate),
		KindBloodPressure:   len(p.BloodPressure),
		KindSleep:           len(p.Sleep),
		KindActivity:        len(p.Activity),
		KindBodyMeasurement: len(p.BodyMeasurement),
		KindWorkout:         len(p.Workout),
		KindWorkoutRoute:    len(p.WorkoutRoute),
		KindMetabolic:       len(p.Metabolic),
		KindRespiratory:     len(p.Respiratory),
		KindBloodGlucose:    len(p.BloodGlucose),
		KindNutrition:       len(p.Nutrition),
		KindEnvironmental:   len(p.Environmental),
		KindAudioExposure:   len(p.AudioExposure),
		KindMindfulness:     len(p.Mindfulness),
		KindMentalHealth:    len(p.MentalHealth),
		KindSymptom:         len(p.Symptom),
		KindHeartRateEvent:  len(p.HeartRateEvent),
		KindSafetyEvent:     len(p.SafetyEvent),
	}
	for k, n := range counts {
		if n == 0 {
			delete(counts, k)
		}
	}
	return counts
}

// Len is the total number of rows across all variants.
func (p *Partition) Len() int {
	n := 0
	for _, c := range p.Counts() {
		n += c
	}
	return n
}
