package propagation

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/sampling"
	"github.com/helixtrace/helix/internal/shared/id"
	"github.com/helixtrace/helix/internal/trace"
)

func newTracer(t *testing.T, rate float64) *trace.Tracer {
	t.Helper()
	sampler, err := sampling.NewProbabilistic(rate)
	require.NoError(t, err)
	tr, err := trace.New(trace.Config{
		ServiceName: "testsvc",
		Sampler:     sampler,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestInjectExtractRoundTrip(t *testing.T) {
	tr := newTracer(t, 1.0)
	span := tr.StartSpan("op")

	carrier := MapCarrier{}
	Inject(span, carrier)

	remote, err := Extract(carrier)
	require.NoError(t, err)
	assert.Equal(t, span.Context().TraceID, remote.TraceID)
	assert.Equal(t, span.Context().SpanID, remote.SpanID)
	assert.True(t, remote.Sampled)
	assert.True(t, remote.Remote)
}

func TestInjectUnsampled(t *testing.T) {
	tr := newTracer(t, 0.0)
	span := tr.StartSpan("op")

	carrier := MapCarrier{}
	Inject(span, carrier)

	assert.NotEmpty(t, carrier[HeaderTraceID], "IDs propagate even when unsampled")
	assert.Equal(t, "0", carrier[HeaderSampled])

	remote, err := Extract(carrier)
	require.NoError(t, err)
	assert.False(t, remote.Sampled)
}

func TestExtractHTTPHeaders(t *testing.T) {
	tr := newTracer(t, 1.0)
	span := tr.StartSpan("op")

	headers := make(http.Header)
	Inject(span, headers)

	remote, err := Extract(headers)
	require.NoError(t, err)
	assert.Equal(t, span.Context().TraceID, remote.TraceID)
}

func TestExtractMissingContext(t *testing.T) {
	_, err := Extract(MapCarrier{})
	assert.ErrorIs(t, err, ErrNoTraceContext)
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name    string
		carrier MapCarrier
	}{
		{"short trace id", MapCarrier{HeaderTraceID: "abc"}},
		{"non-hex trace id", MapCarrier{HeaderTraceID: "zz223344556677889900aabbccddeeff"}},
		{"zero trace id", MapCarrier{HeaderTraceID: "00000000000000000000000000000000"}},
		{
			"bad span id",
			MapCarrier{
				HeaderTraceID: "11223344556677889900aabbccddeeff",
				HeaderSpanID:  "nothex",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.carrier)
			assert.Error(t, err)
		})
	}
}

func TestExtractToleratesMissingSpanID(t *testing.T) {
	carrier := MapCarrier{
		HeaderTraceID: "11223344556677889900aabbccddeeff",
		HeaderSampled: "1",
	}
	remote, err := Extract(carrier)
	require.NoError(t, err)
	assert.True(t, remote.TraceID.IsValid())
	assert.Equal(t, id.SpanID{}, remote.SpanID)
	assert.True(t, remote.Sampled)
}

func TestExtractFeedsTracer(t *testing.T) {
	upstream := newTracer(t, 1.0)
	parent := upstream.StartSpan("upstream")

	carrier := MapCarrier{}
	Inject(parent, carrier)

	remote, err := Extract(carrier)
	require.NoError(t, err)

	// The downstream tracer samples nothing locally but honors the
	// sampled remote parent.
	downstream := newTracer(t, 0.0)
	span := downstream.StartSpan("downstream", trace.WithRemoteParent(remote))

	assert.Equal(t, parent.Context().TraceID, span.Context().TraceID)
	assert.Equal(t, sampling.RecordAndSample, span.Decision())
}
