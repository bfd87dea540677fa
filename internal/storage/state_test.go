package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/domain/mocks"
	"github.com/hammamikhairi/tomato/internal/logger"
)

func TestStateRepositoryRoundTrip(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	repo := NewStateRepository(NewMemoryKV(log), log)
	ctx := context.Background()

	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)
	want := domain.TimerState{
		RemainingMinutes: 5,
		RemainingSeconds: 0,
		Running:          true,
		ActiveType:       domain.TypeShort,
		StartTime:        &start,
		EndTime:          &end,
	}

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Clock() != "5:00" || !got.Running || got.ActiveType != domain.TypeShort {
		t.Fatalf("unexpected state %+v", got)
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Fatalf("endTime = %v, want %v", got.EndTime, end)
	}
}

func TestStateRepositoryMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing minutes", `{"remainingSeconds":0,"running":false,"activeType":"focus"}`},
		{"missing seconds", `{"remainingMinutes":25,"running":false,"activeType":"focus"}`},
		{"missing running", `{"remainingMinutes":25,"remainingSeconds":0,"activeType":"focus"}`},
		{"missing type", `{"remainingMinutes":25,"remainingSeconds":0,"running":false}`},
		{"unknown type", `{"remainingMinutes":25,"remainingSeconds":0,"running":false,"activeType":"nap"}`},
		{"seconds out of range", `{"remainingMinutes":1,"remainingSeconds":75,"running":false,"activeType":"focus"}`},
		{"beyond three hours", `{"remainingMinutes":180,"remainingSeconds":1,"running":false,"activeType":"focus"}`},
		{"minutes too large", `{"remainingMinutes":200000000,"remainingSeconds":0,"running":false,"activeType":"focus"}`},
		{"negative minutes", `{"remainingMinutes":-1,"remainingSeconds":0,"running":false,"activeType":"focus"}`},
	}

	log := logger.New(logger.LevelOff, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV(log)
			ctx := context.Background()
			if err := kv.Set(ctx, StateKey, []byte(tt.raw)); err != nil {
				t.Fatalf("set: %v", err)
			}
			_, err := NewStateRepository(kv, log).Load(ctx)
			if !errors.Is(err, domain.ErrMalformedState) {
				t.Fatalf("expected ErrMalformedState, got %v", err)
			}
		})
	}
}

func TestStateRepositoryPropagatesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKVStore(ctrl)
	log := logger.New(logger.LevelOff, nil)
	repo := NewStateRepository(kv, log)
	ctx := context.Background()

	diskFull := errors.New("disk full")
	kv.EXPECT().Get(gomock.Any(), StateKey).Return(nil, domain.ErrNotFound)
	kv.EXPECT().Set(gomock.Any(), StateKey, gomock.Any()).Return(diskFull)

	if _, err := repo.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Save(ctx, domain.DefaultState()); !errors.Is(err, diskFull) {
		t.Fatalf("expected wrapped disk error, got %v", err)
	}
}
