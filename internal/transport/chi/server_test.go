package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/metadata"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/params"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/policy"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
	domusage "github.com/DevHassanMehdi/ImageUpLift/internal/domain/usage"
	analyticsuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/analytics"
	convertuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/convert"
	healthuc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/health"
	recommenduc "github.com/DevHassanMehdi/ImageUpLift/internal/usecase/recommend"
)

// --- Fakes ---

type fakeRecommender struct {
	got recommenduc.Upload
	err error
}

func (f *fakeRecommender) Analyze(_ context.Context, up recommenduc.Upload) (recommenduc.Result, error) {
	f.got = up
	if f.err != nil {
		return recommenduc.Result{}, f.err
	}
	md := metadata.Reconstruct(up.Name, 640, 480, int64(len(up.Data)), metadata.Signals{
		Sharpness: 120, NoiseLevel: 120, ColorCount: 300, EdgeComplexity: 900,
	}, classification.Reconstruct(classification.Photo, 0.8, map[string]float64{"a photo": 0.8}))
	return recommenduc.Result{
		ImageID:          4,
		RecommendationID: 9,
		Metadata:         md,
		Recommendation: policy.Recommendation{
			Mode:       mode.Enhance,
			Vector:     params.DefaultVector(),
			Outline:    params.DefaultOutline(),
			Confidence: 0.8,
		},
	}, nil
}

type fakeConverter struct {
	got convertuc.Request
	err error
}

func (f *fakeConverter) Convert(_ context.Context, req convertuc.Request) (convertuc.Result, error) {
	f.got = req
	if f.err != nil {
		return convertuc.Result{}, f.err
	}
	return convertuc.Result{
		ConversionID: 12,
		ImageID:      4,
		Mode:         req.Mode,
		Params:       params.DefaultOutline(),
		Output:       record.Blob{Data: []byte("<svg/>"), MIME: "image/svg+xml"},
		Device:       record.DeviceCPU,
		Duration:     1234 * time.Millisecond,
	}, nil
}

type fakeGallery struct {
	rows      map[int64]record.Conversion
	listMode  string
	listLimit int
}

func (f *fakeGallery) List(_ context.Context, m string, limit int) ([]record.Conversion, error) {
	f.listMode, f.listLimit = m, limit
	out := []record.Conversion{}
	for _, c := range f.rows {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeGallery) Get(_ context.Context, id int64) (record.Conversion, error) {
	if c, ok := f.rows[id]; ok {
		return c, nil
	}
	return record.Conversion{}, fmt.Errorf("conversion %d: %w", id, domain.ErrNotFound)
}

func (f *fakeGallery) Output(_ context.Context, id int64, thumb bool) (record.Blob, error) {
	c, ok := f.rows[id]
	if !ok {
		return record.Blob{}, domain.ErrNotFound
	}
	if thumb {
		return record.Blob{Data: []byte("thumb"), MIME: "image/png"}, nil
	}
	return record.Blob{Data: []byte("full"), MIME: c.Output.MIME}, nil
}

func (f *fakeGallery) Delete(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeAnalytics struct{ err error }

func (f fakeAnalytics) Summary(context.Context) (record.Summary, error) {
	m := "outline"
	return record.Summary{TotalImages: 3, MostUsedMode: &m, AvgProcessingTime: 1.5}, f.err
}

func (f fakeAnalytics) ModeUsage(context.Context) (map[string]int, error) {
	return map[string]int{"outline": 2, "enhance": 1}, f.err
}

func (f fakeAnalytics) DailyTrend(context.Context) ([]record.DayCount, error) {
	return []record.DayCount{{Date: "2025-03-01", Count: 3}}, f.err
}

func (f fakeAnalytics) Recent(context.Context) ([]analyticsuc.RecentItem, error) {
	return []analyticsuc.RecentItem{}, f.err
}

func (f fakeAnalytics) TimeByMode(context.Context) ([]record.ModeTime, error) { return nil, f.err }

func (f fakeAnalytics) PeakHours(context.Context) ([]record.HourCount, error) { return nil, f.err }

func (f fakeAnalytics) ImageTypes(context.Context) ([]record.TypeCount, error) { return nil, f.err }

func (f fakeAnalytics) Fastest(context.Context) ([]analyticsuc.RankedItem, error) { return nil, f.err }

func (f fakeAnalytics) Slowest(context.Context) ([]analyticsuc.RankedItem, error) { return nil, f.err }

type fakeUsage struct{}

func (fakeUsage) Report(_ context.Context, p domusage.Period) domusage.Report {
	start, end := p.Bounds(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	return domusage.NewReport(p, "openai", start, end, 4, 10)
}

type fakeHealth struct{ report healthuc.Report }

func (f fakeHealth) Check(context.Context) healthuc.Report { return f.report }

// --- Helpers ---

type env struct {
	handler   http.Handler
	recommend *fakeRecommender
	convert   *fakeConverter
	gallery   *fakeGallery
}

func newEnv(t *testing.T, opts RouterOptions) *env {
	t.Helper()
	e := &env{
		recommend: &fakeRecommender{},
		convert:   &fakeConverter{},
		gallery: &fakeGallery{rows: map[int64]record.Conversion{
			5: {ID: 5, Mode: mode.Outline, Status: record.StatusSuccess, Output: record.Blob{MIME: "image/svg+xml"},
				ChosenParams: []byte(`{"low":100,"high":200}`)},
		}},
	}
	srv := NewServer(Services{
		Recommend: e.recommend,
		Convert:   e.convert,
		Gallery:   e.gallery,
		Analytics: fakeAnalytics{},
		Usage:     fakeUsage{},
		Health:    fakeHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK}}},
	}, 1<<20, nil)
	e.handler = srv.Router(opts)
	return e
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *env) do(method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rr.Body.String())
	}
	return resp
}

// --- Tests ---

func TestRecommend(t *testing.T) {
	e := newEnv(t, RouterOptions{})
	body, ct := multipartBody(t, nil, "photo.JPG", []byte("jpeg-bytes"))

	rr := e.do(http.MethodPost, "/recommend", body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["image_id"] != float64(4) || resp["recommendation_id"] != float64(9) {
		t.Errorf("ids = %v %v", resp["image_id"], resp["recommendation_id"])
	}
	md := resp["metadata"].(map[string]any)
	if md["file_name"] != "photo.JPG" || md["resolution"] != "640x480" {
		t.Errorf("metadata = %v", md)
	}
	rec := resp["recommendation"].(map[string]any)
	if rec["conversion_mode"] != "enhance" || rec["confidence"] != 0.8 {
		t.Errorf("recommendation = %v", rec)
	}
	if string(e.recommend.got.Data) != "jpeg-bytes" {
		t.Errorf("upload data = %q", e.recommend.got.Data)
	}
}

func TestRecommend_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		svcErr   error
		wantCode int
		wantErr  ErrorCode
	}{
		{"missing file", "", nil, nil, http.StatusBadRequest, CodeValidationFailed},
		{"unsupported extension", "doc.pdf", []byte("x"), nil, http.StatusBadRequest, CodeValidationFailed},
		{"empty file", "a.png", []byte{}, nil, http.StatusBadRequest, CodeValidationFailed},
		{"too large", "a.png", bytes.Repeat([]byte("x"), 2<<20), nil, http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"decode error", "a.png", []byte("x"), fmt.Errorf("%w: bad header", domain.ErrDecode), http.StatusBadRequest, CodeBadRequest},
		{"classifier failure", "a.png", []byte("x"), domain.ErrClassifierFailure, http.StatusBadGateway, CodeClassifierError},
		{"classifier unavailable", "a.png", []byte("x"), domain.ErrClassifierUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"quota exceeded", "a.png", []byte("x"), domain.ErrClassifierQuotaExceeded, http.StatusTooManyRequests, CodeQuotaExceeded},
		{"internal", "a.png", []byte("x"), errors.New("db exploded"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, RouterOptions{})
			e.recommend.err = tt.svcErr
			body, ct := multipartBody(t, nil, tt.file, tt.data)

			rr := e.do(http.MethodPost, "/recommend", body, ct)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
			}
			if tt.wantCode == http.StatusInternalServerError && strings.Contains(resp.Message, "exploded") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestConvert_ReturnsArtifact(t *testing.T) {
	e := newEnv(t, RouterOptions{})
	body, ct := multipartBody(t, map[string]string{"mode": "outline", "params": `{"low":50}`}, "a.png", []byte("png"))

	rr := e.do(http.MethodPost, "/conversion", body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "<svg/>" || rr.Header().Get("Content-Type") != "image/svg+xml" {
		t.Errorf("body = %q type = %q", rr.Body.String(), rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("X-Conversion-ID") != "12" || rr.Header().Get("X-Time-Taken") != "1.234" {
		t.Errorf("headers = %v", rr.Header())
	}
	if rr.Header().Get("X-Params") != `{"low":100,"high":200}` {
		t.Errorf("X-Params = %q", rr.Header().Get("X-Params"))
	}
	got := e.convert.got
	if got.Mode != mode.Outline || got.Upload == nil || string(got.Params) != `{"low":50}` {
		t.Errorf("request = %+v", got)
	}
}

func TestConvert_ByImageID(t *testing.T) {
	e := newEnv(t, RouterOptions{})
	body, ct := multipartBody(t, map[string]string{"mode": "enhance", "image_id": "4"}, "", nil)

	rr := e.do(http.MethodPost, "/conversion", body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if e.convert.got.ImageID != 4 || e.convert.got.Upload != nil || e.convert.got.Params != nil {
		t.Errorf("request = %+v", e.convert.got)
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		file     string
		svcErr   error
		wantCode int
	}{
		{"missing mode", map[string]string{"image_id": "1"}, "", nil, http.StatusBadRequest},
		{"unknown mode", map[string]string{"mode": "sketch", "image_id": "1"}, "", nil, http.StatusBadRequest},
		{"no source", map[string]string{"mode": "outline"}, "", nil, http.StatusBadRequest},
		{"bad image id", map[string]string{"mode": "outline", "image_id": "abc"}, "", nil, http.StatusBadRequest},
		{"negative image id", map[string]string{"mode": "outline", "image_id": "-3"}, "", nil, http.StatusBadRequest},
		{"params not json", map[string]string{"mode": "outline", "image_id": "1", "params": "{low"}, "", nil, http.StatusBadRequest},
		{"invalid params", map[string]string{"mode": "outline", "image_id": "1"}, "", domain.NewParamError("high", "too big"), http.StatusBadRequest},
		{"image not found", map[string]string{"mode": "outline", "image_id": "1"}, "", domain.ErrNotFound, http.StatusNotFound},
		{"pipeline failed", map[string]string{"mode": "outline"}, "a.png", fmt.Errorf("outline: potrace: %w", domain.ErrConversionFailed), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, RouterOptions{})
			e.convert.err = tt.svcErr
			body, ct := multipartBody(t, tt.fields, tt.file, []byte("png"))

			rr := e.do(http.MethodPost, "/conversion", body, ct)
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
		})
	}
}

func TestListConversions(t *testing.T) {
	e := newEnv(t, RouterOptions{})

	rr := e.do(http.MethodGet, "/conversion/list?mode=outline&limit=10", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if e.gallery.listMode != "outline" || e.gallery.listLimit != 10 {
		t.Errorf("filter = %q %d", e.gallery.listMode, e.gallery.listLimit)
	}
	var items []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0]["id"] != float64(5) {
		t.Fatalf("items = %v", items)
	}
	cp, ok := items[0]["chosen_params"].(map[string]any)
	if !ok || cp["high"] != float64(200) {
		t.Errorf("chosen_params = %v", items[0]["chosen_params"])
	}

	for _, q := range []string{"?limit=abc", "?limit=0", "?limit=501", "?mode=sketch"} {
		if rr := e.do(http.MethodGet, "/conversion/list"+q, nil, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rr.Code)
		}
	}
}

func TestConversionByID(t *testing.T) {
	e := newEnv(t, RouterOptions{})

	if rr := e.do(http.MethodGet, "/conversion/5", nil, ""); rr.Code != http.StatusOK {
		t.Errorf("get: status = %d", rr.Code)
	}
	if rr := e.do(http.MethodGet, "/conversion/99", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d", rr.Code)
	}
	if rr := e.do(http.MethodGet, "/conversion/abc", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("get bad id: status = %d", rr.Code)
	}

	rr := e.do(http.MethodGet, "/conversion/output/5?thumb=true", nil, "")
	if rr.Code != http.StatusOK || rr.Body.String() != "thumb" || rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("thumb: %d %q", rr.Code, rr.Body.String())
	}
	rr = e.do(http.MethodGet, "/conversion/output/5", nil, "")
	if rr.Body.String() != "full" || rr.Header().Get("Content-Type") != "image/svg+xml" {
		t.Errorf("output: %q %q", rr.Body.String(), rr.Header().Get("Content-Type"))
	}
	if rr := e.do(http.MethodGet, "/conversion/output/5?thumb=maybe", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad thumb flag: status = %d", rr.Code)
	}

	if rr := e.do(http.MethodDelete, "/conversion/5", nil, ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d", rr.Code)
	}
	if rr := e.do(http.MethodDelete, "/conversion/5", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("delete again: status = %d", rr.Code)
	}
}

func TestAnalytics(t *testing.T) {
	e := newEnv(t, RouterOptions{})

	rr := e.do(http.MethodGet, "/analytics/summary", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var sum map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum["total_images"] != float64(3) || sum["most_used_mode"] != "outline" || sum["common_image_type"] != nil {
		t.Errorf("summary = %v", sum)
	}

	for _, p := range []string{"mode-usage", "daily-trend", "recent", "time-by-mode", "peak-hours", "image-types", "fastest", "slowest"} {
		if rr := e.do(http.MethodGet, "/analytics/"+p, nil, ""); rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d", p, rr.Code)
		}
	}
}

func TestUsage(t *testing.T) {
	e := newEnv(t, RouterOptions{})

	rr := e.do(http.MethodGet, "/usage?period=month", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["period"] != "month" || got["remaining"] != float64(6) {
		t.Errorf("usage = %v", got)
	}

	if rr := e.do(http.MethodGet, "/usage", nil, ""); rr.Code != http.StatusOK {
		t.Errorf("default period: status = %d", rr.Code)
	}
	if rr := e.do(http.MethodGet, "/usage?period=year", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad period: status = %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			srv := NewServer(Services{
				Analytics: fakeAnalytics{},
				Health:    fakeHealth{report: healthuc.Report{Status: tt.status}},
			}, 0, nil)
			rr := httptest.NewRecorder()
			srv.Router(RouterOptions{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	e := newEnv(t, RouterOptions{RequestsPerMinute: 1})

	if rr := e.do(http.MethodGet, "/", nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rr.Code)
	}
	rr := e.do(http.MethodGet, "/", nil, "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rr.Code)
	}
	if decodeError(t, rr).Code != CodeRateLimited {
		t.Error("expected rate_limited code")
	}
}

func TestRouter_CORSAndRequestID(t *testing.T) {
	e := newEnv(t, RouterOptions{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("allow origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newEnv(t, RouterOptions{})
	rr := e.do(http.MethodGet, "/nope", nil, "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Code != CodeNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}
