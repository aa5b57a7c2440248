package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSampler returns a fixed decision and counts Decide calls.
type stubSampler struct {
	decision Decision
	calls    int
	stats    counters
	started  bool
	stopped  bool
}

func newStub(d Decision) *stubSampler {
	s := &stubSampler{decision: d}
	s.stats.init()
	return s
}

func (s *stubSampler) Decide(sc Context) (d Decision) {
	defer settle(&s.stats, &d)
	s.calls++
	return s.decision
}

func (s *stubSampler) Stats() Stats        { return s.stats.snapshot() }
func (s *stubSampler) Description() string { return "stub" }
func (s *stubSampler) ResetStats()         { s.stats.reset() }
func (s *stubSampler) Start()              { s.started = true }
func (s *stubSampler) Stop()               { s.stopped = true }

// panicSampler blows up inside Decide to exercise fault recovery.
type panicSampler struct {
	stats counters
}

func (s *panicSampler) Decide(sc Context) (d Decision) {
	defer settle(&s.stats, &d)
	panic("decision fault")
}

func (s *panicSampler) Stats() Stats        { return s.stats.snapshot() }
func (s *panicSampler) Description() string { return "panic" }

func TestNewCompositeValidation(t *testing.T) {
	_, err := NewComposite(nil, Any)
	require.ErrorIs(t, err, ErrNoChildren)

	_, err = NewComposite([]Sampler{newStub(Drop)}, Combination("quorum"))
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestCompositeResolution(t *testing.T) {
	tests := []struct {
		name     string
		strategy Combination
		children []Decision
		want     Decision
	}{
		{"any: one sampled", Any, []Decision{RecordAndSample, Drop}, RecordAndSample},
		{"any: record only", Any, []Decision{RecordOnly, Drop}, RecordOnly},
		{"any: all drop", Any, []Decision{Drop, Drop}, Drop},
		{"all: strict", All, []Decision{RecordAndSample, Drop}, Drop},
		{"all: unanimous", All, []Decision{RecordAndSample, RecordAndSample}, RecordAndSample},
		{"all: mixed recording", All, []Decision{RecordAndSample, RecordOnly}, RecordOnly},
		{"majority: two of three", Majority, []Decision{RecordAndSample, RecordAndSample, Drop}, RecordAndSample},
		{"majority: one of three", Majority, []Decision{RecordAndSample, Drop, Drop}, Drop},
		{"majority: record only quorum", Majority, []Decision{RecordAndSample, RecordOnly, Drop}, RecordOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			children := make([]Sampler, len(tt.children))
			for i, d := range tt.children {
				children[i] = newStub(d)
			}
			s, err := NewComposite(children, tt.strategy)
			require.NoError(t, err)

			assert.Equal(t, tt.want, s.Decide(Context{TraceID: traceIDWithLow64(1)}))
		})
	}
}

func TestCompositeChildrenAlwaysPolled(t *testing.T) {
	first := newStub(RecordAndSample)
	second := newStub(Drop)
	s, err := NewComposite([]Sampler{first, second}, Any)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		s.Decide(Context{TraceID: traceIDWithLow64(uint64(i))})
	}

	// Side effects are not suppressed: every child sees every call and
	// accumulates its own stats.
	assert.Equal(t, 10, first.calls)
	assert.Equal(t, 10, second.calls)
	assert.Equal(t, int64(10), first.Stats().TotalDecisions)
	assert.Equal(t, int64(10), second.Stats().TotalDecisions)
}

func TestCompositeStatsTrackCombinedDecision(t *testing.T) {
	s, err := NewComposite([]Sampler{newStub(RecordAndSample), newStub(Drop)}, All)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.Decide(Context{})
	}

	stats := s.Stats()
	assert.Equal(t, int64(5), stats.TotalDecisions)
	assert.Equal(t, int64(5), stats.DroppedCount, "all-strategy combination drops")
	assert.Equal(t, int64(0), stats.SampledCount)

	child := s.ChildStats()["stub"]
	assert.Equal(t, int64(5), child.TotalDecisions)
}

func TestCompositeLifecycleForwarding(t *testing.T) {
	managed := newStub(Drop)
	plain := &panicSampler{}
	s, err := NewComposite([]Sampler{managed, plain}, Any)
	require.NoError(t, err)

	s.Start()
	s.Stop()

	assert.True(t, managed.started)
	assert.True(t, managed.stopped)
}

func TestCompositeResetStatsIncludesChildren(t *testing.T) {
	child := newStub(RecordAndSample)
	c, err := NewComposite([]Sampler{child}, Any)
	require.NoError(t, err)

	c.Decide(Context{})
	require.Equal(t, int64(1), c.Stats().TotalDecisions)
	require.Equal(t, int64(1), child.Stats().TotalDecisions)

	c.ResetStats()
	assert.Zero(t, c.Stats().TotalDecisions)
	assert.Zero(t, child.Stats().TotalDecisions)
}

func TestDecisionFaultDegradesToDrop(t *testing.T) {
	faulty := &panicSampler{}
	s, err := NewComposite([]Sampler{faulty, newStub(RecordAndSample)}, Any)
	require.NoError(t, err)

	// The child's panic is absorbed by its own guard; the healthy child
	// still votes and the composite still resolves.
	assert.Equal(t, RecordAndSample, s.Decide(Context{}))

	stats := faulty.Stats()
	assert.Equal(t, int64(1), stats.FaultCount)
	assert.Equal(t, int64(1), stats.DroppedCount)
}
