package recommendations

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

type store interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo persists recommendation snapshots.
type Repo struct {
	store store
}

// New creates a recommendation repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create inserts a snapshot and returns its id.
func (r *Repo) Create(ctx context.Context, rec record.Recommendation) (int64, error) {
	const q = `INSERT INTO recommendations (image_id, recommended_mode, vector_params,
		outline_params, metadata_json, confidence_score, recommender_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id int64
	err := r.store.QueryRowContext(ctx, q,
		nullID(rec.ImageID), string(rec.Mode), nullJSON(rec.VectorParams),
		nullJSON(rec.OutlineParams), nullJSON(rec.MetadataJSON), rec.Confidence,
		rec.RecommenderVersion, rec.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return id, nil
}

// LatestForImage returns the newest snapshot recorded for an image.
func (r *Repo) LatestForImage(ctx context.Context, imageID int64) (record.Recommendation, error) {
	const q = `SELECT id, image_id, recommended_mode, vector_params, outline_params,
		metadata_json, confidence_score, recommender_version, created_at
		FROM recommendations WHERE image_id = $1 ORDER BY id DESC LIMIT 1`

	var (
		rec                    record.Recommendation
		imgID                  sql.NullInt64
		recMode, version       sql.NullString
		vec, outline, metadata sql.NullString
		confidence             sql.NullFloat64
	)
	err := r.store.QueryRowContext(ctx, q, imageID).Scan(&rec.ID, &imgID, &recMode, &vec,
		&outline, &metadata, &confidence, &version, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Recommendation{}, fmt.Errorf("recommendation for image %d: %w", imageID, domain.ErrNotFound)
		}
		return record.Recommendation{}, &db.Error{Op: db.OpSelect, Err: err}
	}

	rec.ImageID = imgID.Int64
	rec.Mode = mode.Mode(recMode.String)
	rec.VectorParams = nullableBytes(vec)
	rec.OutlineParams = nullableBytes(outline)
	rec.MetadataJSON = nullableBytes(metadata)
	rec.Confidence = confidence.Float64
	rec.RecommenderVersion = version.String
	return rec, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func nullJSON(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: len(b) > 0}
}

func nullableBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
