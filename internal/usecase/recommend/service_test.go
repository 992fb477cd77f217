package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/policy"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	"github.com/DevHassanMehdi/ImageUpLift/internal/media"
	"github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analyze"
)

// --- Mocks ---

type mockAnalyzer struct {
	analysis analyze.Analysis
	err      error
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ string, _ []byte) (analyze.Analysis, error) {
	return m.analysis, m.err
}

type mockImageRepo struct {
	byHash  map[string]record.Image
	created []record.Image
	findErr error
}

func (m *mockImageRepo) Create(_ context.Context, img record.Image) (int64, error) {
	m.created = append(m.created, img)
	return int64(100 + len(m.created)), nil
}

func (m *mockImageRepo) FindByContentHash(_ context.Context, hash string) (record.Image, error) {
	if m.findErr != nil {
		return record.Image{}, m.findErr
	}
	if img, ok := m.byHash[hash]; ok {
		return img, nil
	}
	return record.Image{}, domain.ErrNotFound
}

type mockRecRepo struct {
	created []record.Recommendation
	err     error
}

func (m *mockRecRepo) Create(_ context.Context, rec record.Recommendation) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.created = append(m.created, rec)
	return int64(len(m.created)), nil
}

// --- Helpers ---

func scoresFor(group classification.ImageType) map[string]float64 {
	scores := map[string]float64{}
	for _, c := range classification.Categories {
		if c.Group == group {
			scores[c.Prompt] = 0.4
		} else {
			scores[c.Prompt] = 0.05
		}
	}
	return scores
}

func testAnalysis(t *testing.T, group classification.ImageType) analyze.Analysis {
	t.Helper()
	px := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for i := range px.Pix {
		px.Pix[i] = uint8(i)
	}
	px.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, px); err != nil {
		t.Fatal(err)
	}

	cls, err := classification.FromScores(scoresFor(group))
	if err != nil {
		t.Fatal(err)
	}
	md, err := metadata.New("art.png", 32, 16, int64(buf.Len()), metadata.Signals{
		Sharpness:      50,
		NoiseLevel:     50,
		ColorCount:     40,
		DominantColors: []metadata.RGB{{1, 2, 3}},
		EdgeComplexity: 4,
	}, cls)
	if err != nil {
		t.Fatal(err)
	}
	return analyze.Analysis{
		Metadata: md,
		Image:    domain.Image{Name: "art.png", Data: buf.Bytes(), Pixels: px},
		Format:   "png",
	}
}

func newService(a Analyzer, imgs ImageRepository, recs RecommendationRepository, total *prometheus.CounterVec) *Service {
	s := New(a, imgs, recs, total)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

// --- Tests ---

func TestAnalyze_StoresImageAndSnapshot(t *testing.T) {
	a := testAnalysis(t, classification.Graphic)
	imgs := &mockImageRepo{}
	recs := &mockRecRepo{}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_recs"}, []string{"mode", "image_type"})
	svc := newService(&mockAnalyzer{analysis: a}, imgs, recs, total)

	res, err := svc.Analyze(context.Background(), Upload{Name: "art.png", Data: a.Image.Data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Recommendation.Mode != mode.Vectorize {
		t.Errorf("mode = %s", res.Recommendation.Mode)
	}
	if res.ImageID != 101 || res.RecommendationID != 1 || res.Reused {
		t.Errorf("ids = %d/%d reused=%v", res.ImageID, res.RecommendationID, res.Reused)
	}

	if len(imgs.created) != 1 {
		t.Fatalf("expected one stored image, got %d", len(imgs.created))
	}
	stored := imgs.created[0]
	if stored.ContentHash != media.ContentHash(a.Image.Data) {
		t.Error("content hash mismatch")
	}
	if stored.MIMEType != "image/png" || stored.Width != 32 || stored.Height != 16 || stored.AspectRatio != 2 {
		t.Errorf("unexpected image row: %+v", stored)
	}
	if stored.Thumb.Empty() || stored.PerceptualHash == "" {
		t.Error("thumbnail and perceptual hash should be set")
	}

	snap := recs.created[0]
	if snap.ImageID != 101 || snap.RecommenderVersion != policy.RecommenderVersion {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	var outline map[string]int
	if err := json.Unmarshal(snap.OutlineParams, &outline); err != nil {
		t.Fatalf("outline params: %v", err)
	}
	if _, ok := outline["low"]; !ok {
		t.Errorf("outline params = %s", snap.OutlineParams)
	}
	var md map[string]any
	if err := json.Unmarshal(snap.MetadataJSON, &md); err != nil {
		t.Fatalf("metadata json: %v", err)
	}
	if md["file_name"] != "art.png" {
		t.Errorf("metadata json = %s", snap.MetadataJSON)
	}
	if got := testutil.ToFloat64(total.WithLabelValues("vectorize", "graphic")); got != 1 {
		t.Errorf("counter = %v", got)
	}
}

func TestAnalyze_ReusesIdenticalUpload(t *testing.T) {
	a := testAnalysis(t, classification.Photo)
	hash := media.ContentHash(a.Image.Data)
	imgs := &mockImageRepo{byHash: map[string]record.Image{hash: {ID: 7}}}
	recs := &mockRecRepo{}
	svc := newService(&mockAnalyzer{analysis: a}, imgs, recs, nil)

	res, err := svc.Analyze(context.Background(), Upload{Name: "art.png", Data: a.Image.Data})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reused || res.ImageID != 7 {
		t.Errorf("expected reuse of image 7, got %d reused=%v", res.ImageID, res.Reused)
	}
	if len(imgs.created) != 0 {
		t.Error("duplicate upload must not be stored again")
	}
	if res.Recommendation.Mode != mode.Enhance || recs.created[0].ImageID != 7 {
		t.Errorf("snapshot should reference reused image: %+v", recs.created[0])
	}
}

func TestAnalyze_Errors(t *testing.T) {
	a := testAnalysis(t, classification.Graphic)
	storeErr := errors.New("disk full")

	tests := []struct {
		name    string
		svc     *Service
		wantErr error
	}{
		{
			"analyzer error propagates",
			newService(&mockAnalyzer{err: domain.ErrDecode}, &mockImageRepo{}, &mockRecRepo{}, nil),
			domain.ErrDecode,
		},
		{
			"image lookup failure",
			newService(&mockAnalyzer{analysis: a}, &mockImageRepo{findErr: storeErr}, &mockRecRepo{}, nil),
			storeErr,
		},
		{
			"snapshot failure",
			newService(&mockAnalyzer{analysis: a}, &mockImageRepo{}, &mockRecRepo{err: storeErr}, nil),
			storeErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Analyze(context.Background(), Upload{Name: "x", Data: []byte{1}})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
