// Package id provides trace and span identifier generation.
//
// Identifiers follow the W3C trace-context sizes: 128-bit trace IDs and
// 64-bit span IDs, hex encoded. Trace IDs are drawn from a cryptographically
// secure source so that their low 64 bits are uniformly distributed, which
// the probabilistic samplers rely on for deterministic rate decisions.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// TraceID identifies all spans belonging to one logical request chain.
type TraceID [16]byte

// SpanID identifies a single span within a trace.
type SpanID [8]byte

var (
	zeroTraceID TraceID
	zeroSpanID  SpanID
)

// String returns the lowercase hex encoding of the trace ID.
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// IsValid reports whether the trace ID is non-zero.
func (t TraceID) IsValid() bool {
	return t != zeroTraceID
}

// Low64 returns the low 64 bits of the trace ID as an unsigned integer.
// Probabilistic sampling treats this as a uniform scalar in [0, MaxUint64].
func (t TraceID) Low64() uint64 {
	return binary.BigEndian.Uint64(t[8:])
}

// SuspectNonUniform reports whether the trace ID looks hand-assigned rather
// than random: all-zero upper half combined with a small counter-like lower
// half skews probabilistic decisions. Callers should warn, not reject.
func (t TraceID) SuspectNonUniform() bool {
	for _, b := range t[:8] {
		if b != 0 {
			return false
		}
	}
	// Upper half zero and the low half within 32-bit range reads like a
	// sequential or constant ID.
	return t.Low64() < (1 << 32)
}

// String returns the lowercase hex encoding of the span ID.
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// IsValid reports whether the span ID is non-zero.
func (s SpanID) IsValid() bool {
	return s != zeroSpanID
}

// TraceIDFromHex parses a 32-character hex string into a TraceID.
func TraceIDFromHex(h string) (TraceID, error) {
	var t TraceID
	if len(h) != 32 {
		return t, fmt.Errorf("trace id must be 32 hex characters, got %d", len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return t, fmt.Errorf("trace id is not valid hex: %w", err)
	}
	copy(t[:], b)
	if !t.IsValid() {
		return t, fmt.Errorf("trace id is all zeroes")
	}
	return t, nil
}

// SpanIDFromHex parses a 16-character hex string into a SpanID.
func SpanIDFromHex(h string) (SpanID, error) {
	var s SpanID
	if len(h) != 16 {
		return s, fmt.Errorf("span id must be 16 hex characters, got %d", len(h))
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return s, fmt.Errorf("span id is not valid hex: %w", err)
	}
	copy(s[:], b)
	if !s.IsValid() {
		return s, fmt.Errorf("span id is all zeroes")
	}
	return s, nil
}

// Generator generates trace and span IDs from a shared entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use this to make ID sequences reproducible.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// NewTraceID generates a new random, non-zero trace ID.
func (g *Generator) NewTraceID() TraceID {
	var t TraceID
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	for {
		if _, err := io.ReadFull(g.entropy, t[:]); err != nil {
			panic(fmt.Sprintf("id: entropy source failed: %v", err))
		}
		if t.IsValid() {
			return t
		}
	}
}

// NewSpanID generates a new random, non-zero span ID.
func (g *Generator) NewSpanID() SpanID {
	var s SpanID
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	for {
		if _, err := io.ReadFull(g.entropy, s[:]); err != nil {
			panic(fmt.Sprintf("id: entropy source failed: %v", err))
		}
		if s.IsValid() {
			return s
		}
	}
}
