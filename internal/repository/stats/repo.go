// Package stats runs the aggregate queries behind the analytics endpoints.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

type store interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	DateExpr(col string) string
	HourExpr(col string) string
}

// Repo aggregates the conversions table. Durations are returned unrounded.
type Repo struct {
	store store
}

// New creates a stats repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Summary returns totals over every recorded run.
func (r *Repo) Summary(ctx context.Context) (record.Summary, error) {
	var (
		s   record.Summary
		avg sql.NullFloat64
	)
	err := r.store.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(duration_sec) FROM conversions`).Scan(&s.TotalImages, &avg)
	if err != nil {
		return record.Summary{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	s.AvgProcessingTime = avg.Float64

	if s.MostUsedMode, err = r.top(ctx, "mode"); err != nil {
		return record.Summary{}, err
	}
	if s.CommonImageType, err = r.top(ctx, "image_type"); err != nil {
		return record.Summary{}, err
	}
	return s, nil
}

// top returns the most frequent value of col, nil for an empty table.
func (r *Repo) top(ctx context.Context, col string) (*string, error) {
	q := fmt.Sprintf(`SELECT %[1]s FROM conversions GROUP BY %[1]s
		ORDER BY COUNT(*) DESC, %[1]s LIMIT 1`, col)

	var v sql.NullString
	if err := r.store.QueryRowContext(ctx, q).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.String, nil
}

// ModeUsage counts runs per mode.
func (r *Repo) ModeUsage(ctx context.Context) (map[string]int, error) {
	rows, err := r.store.QueryContext(ctx, `SELECT mode, COUNT(*) FROM conversions GROUP BY mode`)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			m string
			n int
		)
		if err := rows.Scan(&m, &n); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out[m] = n
	}
	return out, wrapRowsErr(rows)
}

// DailyTrend counts runs per UTC day, oldest first.
func (r *Repo) DailyTrend(ctx context.Context) ([]record.DayCount, error) {
	day := r.store.DateExpr("created_at")
	q := fmt.Sprintf(`SELECT %[1]s AS day, COUNT(*) FROM conversions GROUP BY %[1]s ORDER BY %[1]s`, day)

	rows, err := r.store.QueryContext(ctx, q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := []record.DayCount{}
	for rows.Next() {
		var d record.DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, d)
	}
	return out, wrapRowsErr(rows)
}

// PeakHours counts runs per UTC hour of day, in hour order.
func (r *Repo) PeakHours(ctx context.Context) ([]record.HourCount, error) {
	hour := r.store.HourExpr("created_at")
	q := fmt.Sprintf(`SELECT %[1]s AS hour, COUNT(*) FROM conversions GROUP BY %[1]s ORDER BY %[1]s`, hour)

	rows, err := r.store.QueryContext(ctx, q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := []record.HourCount{}
	for rows.Next() {
		var h record.HourCount
		if err := rows.Scan(&h.Hour, &h.Count); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, h)
	}
	return out, wrapRowsErr(rows)
}

// TimeByMode returns the mean duration per mode, ordered by mode.
func (r *Repo) TimeByMode(ctx context.Context) ([]record.ModeTime, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT mode, AVG(duration_sec) FROM conversions GROUP BY mode ORDER BY mode`)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := []record.ModeTime{}
	for rows.Next() {
		var mt record.ModeTime
		if err := rows.Scan(&mt.Mode, &mt.AvgTime); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, mt)
	}
	return out, wrapRowsErr(rows)
}

// ImageTypes counts runs per input media type, most common first.
func (r *Repo) ImageTypes(ctx context.Context) ([]record.TypeCount, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT image_type, COUNT(*) FROM conversions GROUP BY image_type ORDER BY COUNT(*) DESC, image_type`)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := []record.TypeCount{}
	for rows.Next() {
		var (
			t sql.NullString
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		tc := record.TypeCount{Count: n}
		if t.Valid {
			tc.Type = &t.String
		}
		out = append(out, tc)
	}
	return out, wrapRowsErr(rows)
}

// Recent returns the n newest runs.
func (r *Repo) Recent(ctx context.Context, n int) ([]record.TimedConversion, error) {
	return r.timed(ctx, "created_at DESC, id DESC", n)
}

// Fastest returns the n shortest runs.
func (r *Repo) Fastest(ctx context.Context, n int) ([]record.TimedConversion, error) {
	return r.timed(ctx, "duration_sec ASC, id", n)
}

// Slowest returns the n longest runs.
func (r *Repo) Slowest(ctx context.Context, n int) ([]record.TimedConversion, error) {
	return r.timed(ctx, "duration_sec DESC, id", n)
}

func (r *Repo) timed(ctx context.Context, order string, n int) ([]record.TimedConversion, error) {
	q := `SELECT image_name, mode, duration_sec, created_at FROM conversions ORDER BY ` + order + ` LIMIT $1`
	rows, err := r.store.QueryContext(ctx, q, n)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := make([]record.TimedConversion, 0, n)
	for rows.Next() {
		var tc record.TimedConversion
		if err := rows.Scan(&tc.ImageName, &tc.Mode, &tc.DurationSec, &tc.CreatedAt); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, tc)
	}
	return out, wrapRowsErr(rows)
}

func wrapRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return &db.Error{Op: db.OpSelect, Err: err}
	}
	return nil
}
