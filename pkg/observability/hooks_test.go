package observability

import (
	"context"
	"testing"
	"time"
)

type recordingEngineHooks struct {
	NoopEngineHooks
	planStarts int
}

func (h *recordingEngineHooks) OnPlanStart(ctx context.Context, changesets int) {
	h.planStarts++
}

func TestSetEngineHooks(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingEngineHooks{}
	SetEngineHooks(rec)

	Engine().OnPlanStart(context.Background(), 3)
	Engine().OnPlanComplete(context.Background(), 2, time.Millisecond, nil)

	if rec.planStarts != 1 {
		t.Errorf("planStarts = %d, want 1", rec.planStarts)
	}
}

func TestSetEngineHooks_NilIgnored(t *testing.T) {
	t.Cleanup(Reset)

	SetEngineHooks(nil)
	if Engine() == nil {
		t.Fatal("Engine() returned nil after SetEngineHooks(nil)")
	}
}

func TestReset(t *testing.T) {
	SetEngineHooks(&recordingEngineHooks{})
	Reset()

	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Errorf("Engine() after Reset = %T, want NoopEngineHooks", Engine())
	}
}
