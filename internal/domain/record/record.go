// Package record holds the persisted rows of the service: uploaded images,
// recommendation snapshots and conversion runs.
package record

import (
	"time"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
)

// Blob is a stored binary artifact with its media type.
type Blob struct {
	Data []byte
	MIME string
}

// Size returns the artifact length in bytes.
func (b Blob) Size() int64 { return int64(len(b.Data)) }

// Empty reports whether the blob holds no data.
func (b Blob) Empty() bool { return len(b.Data) == 0 }

// Image is an uploaded original plus its thumbnail.
type Image struct {
	ID               int64
	OriginalFilename string
	MIMEType         string
	SizeBytes        int64
	Width            int
	Height           int
	AspectRatio      float64
	ContentHash      string
	PerceptualHash   string
	CreatedAt        time.Time
	Original         []byte
	Thumb            Blob
}

// Recommendation is a snapshot of the analysis and suggested settings for an image.
type Recommendation struct {
	ID                 int64
	ImageID            int64
	Mode               mode.Mode
	VectorParams       []byte
	OutlineParams      []byte
	MetadataJSON       []byte
	Confidence         float64
	RecommenderVersion string
	CreatedAt          time.Time
}

// Status is the outcome of a conversion run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Device is where a pipeline ran.
type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// Conversion is one pipeline run and its artifact. Listings leave the blob
// bytes empty and report their lengths in OutputSize and OutputThumbSize.
type Conversion struct {
	ID              int64
	ImageID         int64
	ImageName       string
	ImageType       string
	Mode            mode.Mode
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSec     float64
	Status          Status
	FailureReason   string
	Device          Device
	ChosenParams    []byte
	OutputHash      string
	Output          Blob
	OutputSize      int64
	OutputThumb     Blob
	OutputThumbSize int64
	CreatedAt       time.Time
}

// ConversionFilter narrows gallery listings. Zero values mean no filter.
type ConversionFilter struct {
	Mode  mode.Mode
	Limit int
}

// Artifact is what a conversion pipeline produces.
type Artifact struct {
	Output Blob
	Device Device
}
