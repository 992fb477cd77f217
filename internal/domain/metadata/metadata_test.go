package metadata

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
)

func graphic(conf float64) classification.Classification {
	return classification.Reconstruct(classification.Graphic, conf, map[string]float64{"x": conf})
}

func TestNew_Valid(t *testing.T) {
	m, err := New("logo.png", 400, 200, 1234, Signals{
		Sharpness:      12.5,
		NoiseLevel:     12.5,
		ColorCount:     42,
		DominantColors: []RGB{{255, 255, 255}, {0, 0, 0}},
		EdgeComplexity: 800,
	}, graphic(0.8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.AspectRatio() != 2 {
		t.Errorf("AspectRatio() = %v, want 2", m.AspectRatio())
	}
	if m.Resolution() != "400x200" {
		t.Errorf("Resolution() = %q", m.Resolution())
	}
	if m.EdgeDensity() != 0.01 {
		t.Errorf("EdgeDensity() = %v, want 0.01", m.EdgeDensity())
	}
	if m.ImageType() != classification.Graphic {
		t.Errorf("ImageType() = %q", m.ImageType())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		size   int64
		s      Signals
		cls    classification.Classification
		substr string
	}{
		{"zero width", 0, 10, 1, Signals{}, graphic(0.5), "dimensions"},
		{"negative height", 10, -1, 1, Signals{}, graphic(0.5), "dimensions"},
		{"too many colors", 10, 10, 1, Signals{ColorCount: MaxColorCount + 1}, graphic(0.5), "color_count"},
		{"negative edges", 10, 10, 1, Signals{EdgeComplexity: -1}, graphic(0.5), "edge_complexity"},
		{"six dominant", 10, 10, 1, Signals{DominantColors: make([]RGB, 6)}, graphic(0.5), "dominant"},
		{"confidence above one", 10, 10, 1, Signals{}, graphic(1.5), "ai_confidence"},
		{"unknown label", 10, 10, 1, Signals{},
			classification.Reconstruct("sketch", 0.5, nil), "ai_image_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("f", tt.w, tt.h, tt.size, tt.s, tt.cls)
			if !errors.Is(err, domain.ErrInvalidMetadata) {
				t.Fatalf("expected ErrInvalidMetadata, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
		})
	}
}

func TestReconstruct_ZeroAreaIsSafe(t *testing.T) {
	m := Reconstruct("f", 0, 0, 0, Signals{EdgeComplexity: 10}, graphic(0.5))
	if m.EdgeDensity() != 0 || m.AspectRatio() != 0 {
		t.Errorf("EdgeDensity=%v AspectRatio=%v, want 0", m.EdgeDensity(), m.AspectRatio())
	}
}

func TestDominantColorsIsCopy(t *testing.T) {
	src := []RGB{{1, 2, 3}}
	m := Reconstruct("f", 1, 1, 1, Signals{DominantColors: src}, graphic(0.5))
	src[0] = RGB{9, 9, 9}
	got := m.DominantColors()
	got[0] = RGB{7, 7, 7}
	if m.DominantColors()[0] != (RGB{1, 2, 3}) {
		t.Errorf("DominantColors mutated: %v", m.DominantColors())
	}
}

func TestJSON(t *testing.T) {
	m, err := New("photo.jpg", 3, 2, 99, Signals{
		Sharpness:      1.5,
		NoiseLevel:     1.5,
		ColorCount:     6,
		DominantColors: []RGB{{10, 20, 30}},
		EdgeComplexity: 2,
	}, classification.Reconstruct(classification.Photo, 0.9, map[string]float64{"p": 0.9, "g": 0.1}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{
		`"file_name":"photo.jpg"`, `"resolution":"3x2"`, `"aspect_ratio":1.5`,
		`"dominant_colors":[[10,20,30]]`, `"ai_image_type":"photo"`, `"edge_complexity":2`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing %s", data, key)
		}
	}

	var back ImageMetadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ImageType() != classification.Photo || back.Confidence() != 0.9 || back.Width() != 3 {
		t.Errorf("round trip lost fields: %+v", back)
	}
}
