package conversions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// DefaultListLimit caps gallery listings when no limit is given.
const DefaultListLimit = 100

type store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo persists conversion runs and their artifacts.
type Repo struct {
	store store
}

// New creates a conversion repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create inserts a run and returns its id.
func (r *Repo) Create(ctx context.Context, c record.Conversion) (int64, error) {
	const q = `INSERT INTO conversions (image_id, image_name, image_type, mode, started_at,
		ended_at, duration_sec, status, failure_reason, device, chosen_params, output_mime,
		output_size_bytes, output_hash, output_blob, output_thumb_blob, output_thumb_mime,
		output_thumb_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id`

	var id int64
	err := r.store.QueryRowContext(ctx, q,
		nullID(c.ImageID), c.ImageName, nullString(c.ImageType), string(c.Mode),
		c.StartedAt.UTC(), c.EndedAt.UTC(), c.DurationSec, string(c.Status),
		nullString(c.FailureReason), string(c.Device), nullString(string(c.ChosenParams)),
		nullString(c.Output.MIME), c.Output.Size(), nullString(c.OutputHash),
		nullBytes(c.Output.Data), nullBytes(c.OutputThumb.Data), nullString(c.OutputThumb.MIME),
		c.OutputThumb.Size(), c.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return id, nil
}

const summaryColumns = `id, image_id, image_name, image_type, mode, started_at, ended_at,
	duration_sec, status, failure_reason, device, chosen_params, output_mime,
	output_size_bytes, output_hash, output_thumb_mime, output_thumb_size, created_at`

// Get loads a run without its artifact bytes.
func (r *Repo) Get(ctx context.Context, id int64) (record.Conversion, error) {
	row := r.store.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM conversions WHERE id = $1`, id)
	c, err := scanConversion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Conversion{}, fmt.Errorf("conversion %d: %w", id, domain.ErrNotFound)
		}
		return record.Conversion{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	return c, nil
}

// List returns runs newest first, without artifact bytes.
func (r *Repo) List(ctx context.Context, f record.ConversionFilter) ([]record.Conversion, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if f.Mode != "" {
		rows, err = r.store.QueryContext(ctx, `SELECT `+summaryColumns+` FROM conversions
			WHERE mode = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, string(f.Mode), limit)
	} else {
		rows, err = r.store.QueryContext(ctx, `SELECT `+summaryColumns+` FROM conversions
			ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := make([]record.Conversion, 0, limit)
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

// Output returns the artifact or its thumbnail. A run without the requested
// blob (failed run, vector output without thumbnail) is ErrNotFound.
func (r *Repo) Output(ctx context.Context, id int64, thumb bool) (record.Blob, error) {
	q := `SELECT output_blob, output_mime FROM conversions WHERE id = $1`
	if thumb {
		q = `SELECT output_thumb_blob, output_thumb_mime FROM conversions WHERE id = $1`
	}

	var (
		blob record.Blob
		mime sql.NullString
	)
	err := r.store.QueryRowContext(ctx, q, id).Scan(&blob.Data, &mime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Blob{}, fmt.Errorf("conversion %d: %w", id, domain.ErrNotFound)
		}
		return record.Blob{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	if blob.Empty() {
		return record.Blob{}, fmt.Errorf("conversion %d has no output: %w", id, domain.ErrNotFound)
	}
	blob.MIME = mime.String
	return blob, nil
}

// Delete removes a run. Deleting a missing run is ErrNotFound.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.store.ExecContext(ctx, `DELETE FROM conversions WHERE id = $1`, id)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("conversion %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(s scanner) (record.Conversion, error) {
	var (
		c                                 record.Conversion
		imageID, outSize, thumbSize       sql.NullInt64
		imageType, status, reason, device sql.NullString
		params, outMIME, outHash          sql.NullString
		thumbMIME                         sql.NullString
		started, ended                    sql.NullTime
		convMode                          string
	)
	err := s.Scan(&c.ID, &imageID, &c.ImageName, &imageType, &convMode, &started, &ended,
		&c.DurationSec, &status, &reason, &device, &params, &outMIME, &outSize, &outHash,
		&thumbMIME, &thumbSize, &c.CreatedAt)
	if err != nil {
		return record.Conversion{}, err
	}

	c.ImageID = imageID.Int64
	c.ImageType = imageType.String
	c.Mode = mode.Mode(convMode)
	c.StartedAt = started.Time
	c.EndedAt = ended.Time
	c.Status = record.Status(status.String)
	c.FailureReason = reason.String
	c.Device = record.Device(device.String)
	if params.Valid {
		c.ChosenParams = []byte(params.String)
	}
	c.Output.MIME = outMIME.String
	c.OutputHash = outHash.String
	c.OutputThumb.MIME = thumbMIME.String
	c.OutputSize = outSize.Int64
	c.OutputThumbSize = thumbSize.Int64
	return c, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
