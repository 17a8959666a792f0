package metric

import (
	"time"

	"github.com/google/uuid"
)

func instant(owner uuid.UUID, at time.Time) Key {
	return Key{Owner: owner, At: at.UnixNano()}
}

func (m *HeartRate) Key() Key       { return instant(m.UserID, m.RecordedAt) }
func (m *BloodPressure) Key() Key   { return instant(m.UserID, m.RecordedAt) }
func (m *BodyMeasurement) Key() Key { return instant(m.UserID, m.RecordedAt) }
func (m *Metabolic) Key() Key       { return instant(m.UserID, m.RecordedAt) }
func (m *Respiratory) Key() Key     { return instant(m.UserID, m.RecordedAt) }
func (m *BloodGlucose) Key() Key    { return instant(m.UserID, m.RecordedAt) }
func (m *Nutrition) Key() Key       { return instant(m.UserID, m.RecordedAt) }
func (m *Environmental) Key() Key   { return instant(m.UserID, m.RecordedAt) }
func (m *AudioExposure) Key() Key   { return instant(m.UserID, m.RecordedAt) }
func (m *Mindfulness) Key() Key     { return instant(m.UserID, m.RecordedAt) }
func (m *MentalHealth) Key() Key    { return instant(m.UserID, m.RecordedAt) }
func (m *Workout) Key() Key         { return instant(m.UserID, m.StartedAt) }

func (m *Sleep) Key() Key {
	return Key{Owner: m.UserID, At: m.SleepStart.UnixNano(), End: m.SleepEnd.UnixNano()}
}

func (m *Activity) Key() Key { return instant(m.UserID, m.RecordedDate.Time) }

func (m *Symptom) Key() Key {
	return Key{Owner: m.UserID, At: m.RecordedAt.UnixNano(), Tag: string(m.SymptomType)}
}

func (m *HeartRateEvent) Key() Key {
	return Key{Owner: m.UserID, At: m.EventOccurredAt.UnixNano(), Tag: string(m.EventType)}
}

func (m *SafetyEvent) Key() Key {
	return Key{Owner: m.UserID, At: m.RecordedAt.UnixNano(), Tag: string(m.EventType)}
}

// Key of a route point is (workout, point_order); At carries the order.
func (m *WorkoutRoutePoint) Key() Key {
	return Key{Owner: m.WorkoutID, At: int64(m.PointOrder)}
}

var workoutNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:health-ingest:workout"))

// WorkoutID derives the stable identifier of the workout a user started at t.
func WorkoutID(user uuid.UUID, startedAt time.Time) uuid.UUID {
	return uuid.NewSHA1(workoutNamespace, []byte(user.String()+"|"+startedAt.UTC().Format(time.RFC3339Nano)))
}

// AssignID sets m.ID from its owner and start time.
func (m *Workout) AssignID() {
	m.ID = WorkoutID(m.UserID, m.StartedAt)
}

// RoutePoints binds the workout's route to its ID in wire order.
func (m *Workout) RoutePoints() []*WorkoutRoutePoint {
	out := make([]*WorkoutRoutePoint, len(m.Route))
	for i, p := range m.Route {
		out[i] = &WorkoutRoutePoint{WorkoutID: m.ID, PointOrder: i, RoutePoint: p}
	}
	return out
}
