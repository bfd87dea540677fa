package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// StateKey is the key the timer record lives under.
const StateKey = "timerData"

// StateRepository reads and writes the single TimerState record.
type StateRepository struct {
	kv  domain.KVStore
	key string
	log *logger.Logger
}

// NewStateRepository wraps kv. The record is stored as JSON under StateKey.
func NewStateRepository(kv domain.KVStore, log *logger.Logger) *StateRepository {
	return &StateRepository{kv: kv, key: StateKey, log: log}
}

// stateRecord mirrors domain.TimerState with pointers so missing fields can
// be told apart from zero values.
type stateRecord struct {
	RemainingMinutes *int              `json:"remainingMinutes"`
	RemainingSeconds *int              `json:"remainingSeconds"`
	Running          *bool             `json:"running"`
	ActiveType       *domain.TimerType `json:"activeType"`
	StartTime        *time.Time        `json:"startTime"`
	EndTime          *time.Time        `json:"endTime"`
}

// Load returns the stored state. It returns domain.ErrNotFound when nothing
// was ever saved and an error wrapping domain.ErrMalformedState when the
// record cannot be trusted.
func (r *StateRepository) Load(ctx context.Context) (domain.TimerState, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return domain.TimerState{}, err
	}
	return decodeState(raw)
}

// Save writes state.
func (r *StateRepository) Save(ctx context.Context, state domain.TimerState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode timer state: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("saving timer state: %w", err)
	}
	r.log.Debug("saved state %s running=%v type=%s", state.Clock(), state.Running, state.ActiveType)
	return nil
}

func decodeState(raw []byte) (domain.TimerState, error) {
	var rec stateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.TimerState{}, fmt.Errorf("%w: %v", domain.ErrMalformedState, err)
	}

	switch {
	case rec.RemainingMinutes == nil:
		return domain.TimerState{}, fmt.Errorf("%w: missing remainingMinutes", domain.ErrMalformedState)
	case rec.RemainingSeconds == nil:
		return domain.TimerState{}, fmt.Errorf("%w: missing remainingSeconds", domain.ErrMalformedState)
	case rec.Running == nil:
		return domain.TimerState{}, fmt.Errorf("%w: missing running", domain.ErrMalformedState)
	case rec.ActiveType == nil:
		return domain.TimerState{}, fmt.Errorf("%w: missing activeType", domain.ErrMalformedState)
	}

	if !rec.ActiveType.Valid() {
		return domain.TimerState{}, fmt.Errorf("%w: unknown activeType %q", domain.ErrMalformedState, *rec.ActiveType)
	}
	if *rec.RemainingMinutes < 0 || *rec.RemainingSeconds < 0 || *rec.RemainingSeconds > 59 ||
		*rec.RemainingMinutes > domain.MaxCustomSeconds/60 ||
		*rec.RemainingMinutes*60+*rec.RemainingSeconds > domain.MaxCustomSeconds {
		return domain.TimerState{}, fmt.Errorf("%w: remaining %d:%d out of range",
			domain.ErrMalformedState, *rec.RemainingMinutes, *rec.RemainingSeconds)
	}

	return domain.TimerState{
		RemainingMinutes: *rec.RemainingMinutes,
		RemainingSeconds: *rec.RemainingSeconds,
		Running:          *rec.Running,
		ActiveType:       *rec.ActiveType,
		StartTime:        rec.StartTime,
		EndTime:          rec.EndTime,
	}, nil
}
