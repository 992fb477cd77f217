package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

// store is the consumer interface for image rows.
type store interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo implements usecase/recommend.ImageRepository.
type Repo struct {
	store store
}

// New creates an image repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

const columns = `id, original_filename, mime_type, size_bytes, width, height, aspect_ratio,
	content_hash, perceptual_hash, created_at, original_blob, thumb_blob, thumb_mime`

// Create inserts the image and returns its id.
func (r *Repo) Create(ctx context.Context, img record.Image) (int64, error) {
	const q = `INSERT INTO images (original_filename, mime_type, size_bytes, width, height,
		aspect_ratio, content_hash, perceptual_hash, created_at, original_blob, thumb_blob,
		thumb_mime, thumb_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var id int64
	err := r.store.QueryRowContext(ctx, q,
		img.OriginalFilename, nullString(img.MIMEType), img.SizeBytes, img.Width, img.Height,
		img.AspectRatio, nullString(img.ContentHash), nullString(img.PerceptualHash),
		img.CreatedAt.UTC(), img.Original, nullBytes(img.Thumb.Data),
		nullString(img.Thumb.MIME), img.Thumb.Size(),
	).Scan(&id)
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return id, nil
}

// Get loads an image by id.
func (r *Repo) Get(ctx context.Context, id int64) (record.Image, error) {
	row := r.store.QueryRowContext(ctx, `SELECT `+columns+` FROM images WHERE id = $1`, id)
	return scanImage(row)
}

// FindByContentHash returns the oldest image with the given sha256 hex digest.
func (r *Repo) FindByContentHash(ctx context.Context, hash string) (record.Image, error) {
	row := r.store.QueryRowContext(ctx,
		`SELECT `+columns+` FROM images WHERE content_hash = $1 ORDER BY id LIMIT 1`, hash)
	return scanImage(row)
}

func scanImage(row *sql.Row) (record.Image, error) {
	var (
		img                      record.Image
		mime, hash, phash, tmime sql.NullString
		size, width, height      sql.NullInt64
		aspect                   sql.NullFloat64
	)
	err := row.Scan(&img.ID, &img.OriginalFilename, &mime, &size, &width, &height, &aspect,
		&hash, &phash, &img.CreatedAt, &img.Original, &img.Thumb.Data, &tmime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.Image{}, fmt.Errorf("image: %w", domain.ErrNotFound)
		}
		return record.Image{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	img.MIMEType = mime.String
	img.SizeBytes = size.Int64
	img.Width = int(width.Int64)
	img.Height = int(height.Int64)
	img.AspectRatio = aspect.Float64
	img.ContentHash = hash.String
	img.PerceptualHash = phash.String
	img.Thumb.MIME = tmime.String
	return img, nil
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
