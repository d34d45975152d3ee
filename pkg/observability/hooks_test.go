package observability

import (
	"context"
	"testing"
	"time"
)

type recordingEngineHooks struct {
	mutations  int
	starts     int
	completes  int
	commits    int
	lastKind   string
	lastStaged int
}

func (r *recordingEngineHooks) OnMutation(_ context.Context, op, caller string, err error) {
	r.mutations++
}
func (r *recordingEngineHooks) OnAnalysisStart(_ context.Context, kind, docID string) {
	r.starts++
	r.lastKind = kind
}
func (r *recordingEngineHooks) OnAnalysisComplete(_ context.Context, kind, docID string, d time.Duration, err error) {
	r.completes++
}
func (r *recordingEngineHooks) OnBatchCommit(_ context.Context, staged int, d time.Duration, err error) {
	r.commits++
	r.lastStaged = staged
}

func TestEngineHookRegistration(t *testing.T) {
	defer Reset()

	rec := &recordingEngineHooks{}
	SetEngineHooks(rec)

	ctx := context.Background()
	Engine().OnMutation(ctx, "add_document", "alice", nil)
	Engine().OnAnalysisStart(ctx, "impact", "spec")
	Engine().OnAnalysisComplete(ctx, "impact", "spec", time.Millisecond, nil)
	Engine().OnBatchCommit(ctx, 3, time.Millisecond, nil)

	if rec.mutations != 1 || rec.starts != 1 || rec.completes != 1 || rec.commits != 1 {
		t.Errorf("hook counts unexpected: %+v", rec)
	}
	if rec.lastKind != "impact" || rec.lastStaged != 3 {
		t.Errorf("hook payloads unexpected: %+v", rec)
	}
}

func TestSetNilKeepsCurrent(t *testing.T) {
	defer Reset()

	rec := &recordingEngineHooks{}
	SetEngineHooks(rec)
	SetEngineHooks(nil)

	Engine().OnMutation(context.Background(), "op", "caller", nil)
	if rec.mutations != 1 {
		t.Error("nil registration should keep the existing hooks")
	}
}

func TestResetRestoresNoops(t *testing.T) {
	rec := &recordingEngineHooks{}
	SetEngineHooks(rec)
	Reset()

	Engine().OnMutation(context.Background(), "op", "caller", nil)
	if rec.mutations != 0 {
		t.Error("Reset should restore the no-op hooks")
	}
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine should return the no-op implementation after Reset")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache should return the no-op implementation after Reset")
	}
}
