package sqldb

import "strings"

var tables = []string{
	`CREATE TABLE IF NOT EXISTS images (
		id {{id}},
		original_filename TEXT NOT NULL,
		mime_type TEXT,
		size_bytes BIGINT,
		width INTEGER,
		height INTEGER,
		aspect_ratio {{float}},
		content_hash TEXT,
		perceptual_hash TEXT,
		created_at {{ts}} NOT NULL,
		original_blob {{blob}},
		thumb_blob {{blob}},
		thumb_mime TEXT,
		thumb_size BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_images_content_hash ON images (content_hash)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		id {{id}},
		image_id BIGINT REFERENCES images (id) ON DELETE SET NULL,
		recommended_mode TEXT,
		vector_params TEXT,
		outline_params TEXT,
		metadata_json TEXT,
		confidence_score {{float}},
		recommender_version TEXT,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_image ON recommendations (image_id, id)`,
	`CREATE TABLE IF NOT EXISTS conversions (
		id {{id}},
		image_id BIGINT REFERENCES images (id) ON DELETE SET NULL,
		image_name TEXT NOT NULL,
		image_type TEXT,
		mode TEXT NOT NULL,
		started_at {{ts}},
		ended_at {{ts}},
		duration_sec {{float}} NOT NULL,
		status TEXT,
		failure_reason TEXT,
		device TEXT,
		chosen_params TEXT,
		output_mime TEXT,
		output_size_bytes BIGINT,
		output_hash TEXT,
		output_blob {{blob}},
		output_thumb_blob {{blob}},
		output_thumb_mime TEXT,
		output_thumb_size BIGINT,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_conversions_mode ON conversions (mode)`,
}

func schema(d Dialect) []string {
	var r *strings.Replacer
	if d == Postgres {
		r = strings.NewReplacer(
			"{{id}}", "BIGSERIAL PRIMARY KEY",
			"{{float}}", "DOUBLE PRECISION",
			"{{ts}}", "TIMESTAMPTZ",
			"{{blob}}", "BYTEA",
		)
	} else {
		r = strings.NewReplacer(
			"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{float}}", "REAL",
			"{{ts}}", "TIMESTAMP",
			"{{blob}}", "BLOB",
		)
	}
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = r.Replace(t)
	}
	return out
}
