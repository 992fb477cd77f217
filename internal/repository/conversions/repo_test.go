package conversions

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db/sqldb"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/mode"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/record"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	d, err := sqldb.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return New(d)
}

var base = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func successRun(m mode.Mode, offset time.Duration) record.Conversion {
	return record.Conversion{
		ImageName:    "logo.png",
		ImageType:    "image/png",
		Mode:         m,
		StartedAt:    base.Add(offset),
		EndedAt:      base.Add(offset + 2*time.Second),
		DurationSec:  2,
		Status:       record.StatusSuccess,
		Device:       record.DeviceCPU,
		ChosenParams: []byte(`{"low":100,"high":200}`),
		OutputHash:   "deadbeef",
		Output:       record.Blob{Data: []byte("<svg/>"), MIME: "image/svg+xml"},
		CreatedAt:    base.Add(offset),
	}
}

func TestCreateGetOutput(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	run := successRun(mode.Outline, 0)
	id, err := r.Create(ctx, run)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Mode != mode.Outline || got.Status != record.StatusSuccess || got.Device != record.DeviceCPU {
		t.Errorf("unexpected row: %+v", got)
	}
	if got.OutputSize != int64(len("<svg/>")) || !got.Output.Empty() {
		t.Errorf("listing should carry size only: size=%d data=%q", got.OutputSize, got.Output.Data)
	}
	if string(got.ChosenParams) != `{"low":100,"high":200}` {
		t.Errorf("params = %s", got.ChosenParams)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("started_at = %v", got.StartedAt)
	}

	out, err := r.Output(ctx, id, false)
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if !bytes.Equal(out.Data, []byte("<svg/>")) || out.MIME != "image/svg+xml" {
		t.Errorf("output = %+v", out)
	}

	if _, err := r.Output(ctx, id, true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing thumbnail should be ErrNotFound, got %v", err)
	}
}

func TestFailedRunHasNoOutput(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	run := successRun(mode.Vectorize, 0)
	run.Status = record.StatusFail
	run.FailureReason = "vtracer: exit status 1"
	run.Output = record.Blob{}
	run.OutputHash = ""
	id, err := r.Create(ctx, run)
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != record.StatusFail || got.FailureReason != run.FailureReason {
		t.Errorf("unexpected row: %+v", got)
	}
	if _, err := r.Output(ctx, id, false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	for i, m := range []mode.Mode{mode.Vectorize, mode.Outline, mode.Vectorize, mode.Enhance} {
		if _, err := r.Create(ctx, successRun(m, time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := r.List(ctx, record.ConversionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(all))
	}
	if all[0].Mode != mode.Enhance {
		t.Errorf("newest first expected, got %s", all[0].Mode)
	}

	vec, err := r.List(ctx, record.ConversionFilter{Mode: mode.Vectorize, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 1 || vec[0].Mode != mode.Vectorize {
		t.Errorf("unexpected filtered list: %+v", vec)
	}
	if !vec[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected newest vectorize run, got %v", vec[0].CreatedAt)
	}
}

func TestDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	id, err := r.Create(ctx, successRun(mode.Enhance, 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Get(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := r.Delete(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}
