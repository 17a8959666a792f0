package batch

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
)

// Statement is one parameterized SQL statement.
type Statement struct {
	SQL  string
	Args []any
}

type sqlKey struct {
	table string
	rows  int
}

// upsertCache holds built SQL text per (table, row count). Chunks of one
// variant mostly share a length, so the text is reused and the driver's
// prepared statement cache hits.
var upsertCache sync.Map

// upsertSQL returns
//
//	INSERT INTO t (c1, ..., cP) VALUES ($1, ..., $P), ... ON CONFLICT (k...) DO UPDATE SET c = EXCLUDED.c, ...
//
// for rows rows. Columns in the conflict target, and "id", are not updated.
func upsertSQL(tableName string, columns, conflict []string, rows int) string {
	key := sqlKey{tableName, rows}
	if s, ok := upsertCache.Load(key); ok {
		return s.(string)
	}
	var b strings.Builder
	b.Grow(64 + rows*len(columns)*7)
	b.WriteString("INSERT INTO ")
	b.WriteString(tableName)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(conflict, ", "))
	b.WriteString(") DO UPDATE SET ")
	skip := make(map[string]bool, len(conflict)+1)
	for _, c := range conflict {
		skip[c] = true
	}
	skip["id"] = true
	first := true
	for _, c := range columns {
		if skip[c] {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(c)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(c)
	}
	s := b.String()
	upsertCache.Store(key, s)
	return s
}

// buildUpsert renders rows into a single statement. It refuses to exceed
// config.SafeParamLimit bind parameters.
func buildUpsert[T metric.Metric](t *table[T], rows []T) (Statement, error) {
	if len(rows) == 0 {
		return Statement{}, fmt.Errorf("%s: empty chunk", t.kind)
	}
	p := t.params()
	if total := len(rows) * p; total > config.SafeParamLimit {
		return Statement{}, fmt.Errorf("%s: %d rows x %d params = %d exceeds safe limit %d",
			t.kind, len(rows), p, total, config.SafeParamLimit)
	}
	args := make([]any, 0, len(rows)*p)
	for i, r := range rows {
		a := t.args(r)
		if len(a) != p {
			return Statement{}, fmt.Errorf("%s row %d: %d args for %d columns", t.kind, i, len(a), p)
		}
		args = append(args, a...)
	}
	return Statement{SQL: upsertSQL(t.kind.Table(), t.columns, t.conflict, len(rows)), Args: args}, nil
}

// routeSummaryStatement updates the derived route columns of one workout; the
// geometry variant also sets the line string when the column exists.
func routeSummaryStatement(id any, s metric.RouteSummary, wkt string, geometry bool) Statement {
	const base = `UPDATE workouts SET route_point_count = $2, route_distance_meters = $3,
	elevation_gain_meters = $4, elevation_loss_meters = $5, altitude_min_meters = $6,
	altitude_max_meters = $7, mean_accuracy_meters = $8`
	args := []any{id, s.PointCount, s.DistanceMeters, s.ElevationGainMeters, s.ElevationLossMeters,
		s.AltitudeMinMeters, s.AltitudeMaxMeters, s.MeanAccuracyMeters}
	if geometry && wkt != "" {
		return Statement{SQL: base + `, route_geometry = ST_GeomFromText($9, 4326) WHERE id = $1`, Args: append(args, wkt)}
	}
	return Statement{SQL: base + ` WHERE id = $1`, Args: args}
}
