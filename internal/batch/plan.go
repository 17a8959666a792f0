package batch

import (
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
)

// plan splits rows into chunks of at most size rows. A size that would
// overflow the parameter limit is clamped to the safe maximum.
func plan[T metric.Metric](t *table[T], rows []T, size int, collapse bool) []*chunk {
	if len(rows) == 0 {
		return nil
	}
	if limit := config.MaxSafeChunk(t.params()); size <= 0 || size > limit {
		size = limit
	}
	total := (len(rows) + size - 1) / size
	out := make([]*chunk, 0, total)
	for i, start := 0, 0; start < len(rows); i, start = i+1, start+size {
		end := min(start+size, len(rows))
		part := rows[start:end]
		out = append(out, &chunk{
			kind:  t.kind,
			index: i,
			total: total,
			start: start,
			end:   end,
			bytes: int64(len(part) * t.rowBytes * 2),
			build: func() (Statement, error) {
				if collapse {
					return buildUpsert(t, collapseLast(part))
				}
				return buildUpsert(t, part)
			},
		})
	}
	return out
}

// planMetrics plans every variant except route points, in metric.Kinds order.
func planMetrics(p *metric.Partition, sizes map[metric.Kind]int, collapse bool) []*chunk {
	var out []*chunk
	out = append(out, plan(heartRates, p.HeartRate, sizes[metric.KindHeartRate], collapse)...)
	out = append(out, plan(bloodPressures, p.BloodPressure, sizes[metric.KindBloodPressure], collapse)...)
	out = append(out, plan(sleeps, p.Sleep, sizes[metric.KindSleep], collapse)...)
	out = append(out, plan(activities, p.Activity, sizes[metric.KindActivity], collapse)...)
	out = append(out, plan(bodyMeasurements, p.BodyMeasurement, sizes[metric.KindBodyMeasurement], collapse)...)
	out = append(out, plan(metabolics, p.Metabolic, sizes[metric.KindMetabolic], collapse)...)
	out = append(out, plan(respiratories, p.Respiratory, sizes[metric.KindRespiratory], collapse)...)
	out = append(out, plan(bloodGlucoses, p.BloodGlucose, sizes[metric.KindBloodGlucose], collapse)...)
	out = append(out, plan(nutritions, p.Nutrition, sizes[metric.KindNutrition], collapse)...)
	out = append(out, plan(environmentals, p.Environmental, sizes[metric.KindEnvironmental], collapse)...)
	out = append(out, plan(audioExposures, p.AudioExposure, sizes[metric.KindAudioExposure], collapse)...)
	out = append(out, plan(mindfulness, p.Mindfulness, sizes[metric.KindMindfulness], collapse)...)
	out = append(out, plan(mentalHealth, p.MentalHealth, sizes[metric.KindMentalHealth], collapse)...)
	out = append(out, plan(symptoms, p.Symptom, sizes[metric.KindSymptom], collapse)...)
	out = append(out, plan(heartRateEvents, p.HeartRateEvent, sizes[metric.KindHeartRateEvent], collapse)...)
	out = append(out, plan(safetyEvents, p.SafetyEvent, sizes[metric.KindSafetyEvent], collapse)...)

	wc := plan(workouts, p.Workout, sizes[metric.KindWorkout], collapse)
	for _, c := range wc {
		for _, w := range p.Workout[c.start:c.end] {
			c.workouts = append(c.workouts, w.ID)
		}
	}
	return append(out, wc...)
}

func dedupKind[T metric.Metric](s *DedupStats, k metric.Kind, rows []T) []T {
	out, n := Dedup(rows)
	s.Duplicates[k.Slug()] += n
	s.Total += n
	return out
}

// dedupPartition dedups every variant except route points, which are
// attached after their parent workouts are final.
func dedupPartition(p *metric.Partition, s *DedupStats) {
	p.HeartRate = dedupKind(s, metric.KindHeartRate, p.HeartRate)
	p.BloodPressure = dedupKind(s, metric.KindBloodPressure, p.BloodPressure)
	p.Sleep = dedupKind(s, metric.KindSleep, p.Sleep)
	p.Activity = dedupKind(s, metric.KindActivity, p.Activity)
	p.BodyMeasurement = dedupKind(s, metric.KindBodyMeasurement, p.BodyMeasurement)
	p.Workout = dedupKind(s, metric.KindWorkout, p.Workout)
	p.Metabolic = dedupKind(s, metric.KindMetabolic, p.Metabolic)
	p.Respiratory = dedupKind(s, metric.KindRespiratory, p.Respiratory)
	p.BloodGlucose = dedupKind(s, metric.KindBloodGlucose, p.BloodGlucose)
	p.Nutrition = dedupKind(s, metric.KindNutrition, p.Nutrition)
	p.Environmental = dedupKind(s, metric.KindEnvironmental, p.Environmental)
	p.AudioExposure = dedupKind(s, metric.KindAudioExposure, p.AudioExposure)
	p.Mindfulness = dedupKind(s, metric.KindMindfulness, p.Mindfulness)
	p.MentalHealth = dedupKind(s, metric.KindMentalHealth, p.MentalHealth)
	p.Symptom = dedupKind(s, metric.KindSymptom, p.Symptom)
	p.HeartRateEvent = dedupKind(s, metric.KindHeartRateEvent, p.HeartRateEvent)
	p.SafetyEvent = dedupKind(s, metric.KindSafetyEvent, p.SafetyEvent)
}

func rowsBytes[T metric.Metric](t *table[T], rows []T) int64 {
	return int64(len(rows) * t.rowBytes)
}

// estimate returns the approximate bytes held by the decoded rows of p.
func estimate(p *metric.Partition) int64 {
	return rowsBytes(heartRates, p.HeartRate) +
		rowsBytes(bloodPressures, p.BloodPressure) +
		rowsBytes(sleeps, p.Sleep) +
		rowsBytes(activities, p.Activity) +
		rowsBytes(bodyMeasurements, p.BodyMeasurement) +
		rowsBytes(workouts, p.Workout) +
		rowsBytes(routePoints, p.WorkoutRoute) +
		rowsBytes(metabolics, p.Metabolic) +
		rowsBytes(respiratories, p.Respiratory) +
		rowsBytes(bloodGlucoses, p.BloodGlucose) +
		rowsBytes(nutritions, p.Nutrition) +
		rowsBytes(environmentals, p.Environmental) +
		rowsBytes(audioExposures, p.AudioExposure) +
		rowsBytes(mindfulness, p.Mindfulness) +
		rowsBytes(mentalHealth, p.MentalHealth) +
		rowsBytes(symptoms, p.Symptom) +
		rowsBytes(heartRateEvents, p.HeartRateEvent) +
		rowsBytes(safetyEvents, p.SafetyEvent)
}
