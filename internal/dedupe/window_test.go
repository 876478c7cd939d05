package dedupe

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/finchley/flowdeck/internal/wire"
)

func envelope(typ wire.EventType, ts, payload string) wire.Envelope {
	return wire.Envelope{
		Type:      typ,
		Timestamp: ts,
		Payload:   json.RawMessage(payload),
	}
}

func TestWindow_FirstDeliveryOnly(t *testing.T) {
	w := NewWindow(DefaultCapacity, DefaultEvictBatch)

	env := envelope(wire.EventNodeExecuting, "2026-01-02T15:04:05Z", `{"nodeId":"n1"}`)

	require.True(t, w.ShouldProcess(env), "first delivery should process")
	require.False(t, w.ShouldProcess(env), "duplicate should be suppressed")
	require.False(t, w.ShouldProcess(env), "every redelivery should be suppressed")
	require.Equal(t, 1, w.Len())
}

func TestWindow_DistinctEnvelopesAllProcess(t *testing.T) {
	w := NewWindow(DefaultCapacity, DefaultEvictBatch)

	a := envelope(wire.EventNodeExecuting, "2026-01-02T15:04:05Z", `{"nodeId":"n1"}`)
	b := envelope(wire.EventNodeResult, "2026-01-02T15:04:05Z", `{"nodeId":"n1"}`)
	c := envelope(wire.EventNodeExecuting, "2026-01-02T15:04:06Z", `{"nodeId":"n1"}`)
	d := envelope(wire.EventNodeExecuting, "2026-01-02T15:04:05Z", `{"nodeId":"n2"}`)

	for _, env := range []wire.Envelope{a, b, c, d} {
		require.True(t, w.ShouldProcess(env))
	}
	require.Equal(t, 4, w.Len())
}

func TestWindow_BatchEviction(t *testing.T) {
	w := NewWindow(100, 50)

	envs := make([]wire.Envelope, 101)
	for i := range envs {
		envs[i] = envelope(wire.EventNodeExecuting, fmt.Sprintf("2026-01-02T15:04:05.%03dZ", i), `{"nodeId":"n1"}`)
		require.True(t, w.ShouldProcess(envs[i]))
	}

	// 101st insert pushed past capacity: the oldest 50 go in one batch.
	require.LessOrEqual(t, w.Len(), 100)
	require.Equal(t, 51, w.Len())

	for i := 0; i < 50; i++ {
		require.False(t, w.Contains(Fingerprint(envs[i])), "fingerprint %d should be evicted", i)
	}
	for i := 50; i < 101; i++ {
		require.True(t, w.Contains(Fingerprint(envs[i])), "fingerprint %d should survive", i)
	}
}

func TestWindow_EvictedFingerprintReprocesses(t *testing.T) {
	w := NewWindow(4, 2)

	first := envelope(wire.EventNodeExecuting, "t0", `{}`)
	require.True(t, w.ShouldProcess(first))

	for i := 1; i <= 4; i++ {
		require.True(t, w.ShouldProcess(envelope(wire.EventNodeExecuting, fmt.Sprintf("t%d", i), `{}`)))
	}

	// first was in the evicted batch; a redelivery is a legitimate reprocess.
	require.True(t, w.ShouldProcess(first))
}

func TestFingerprint_BoundedPrefix(t *testing.T) {
	big := `{"nodeId":"n1","data":"` + strings.Repeat("x", 500) + `"}`
	env := envelope(wire.EventNodeResult, "2026-01-02T15:04:05Z", big)

	fp := Fingerprint(env)
	require.LessOrEqual(t, len(fp), len(wire.EventNodeResult)+len(env.Timestamp)+2+100)

	// Two large payloads sharing the first 100 bytes collide - accepted risk.
	other := envelope(wire.EventNodeResult, "2026-01-02T15:04:05Z", big[:len(big)-3]+`y"}`)
	require.Equal(t, fp, Fingerprint(other))
}

// TestProperty_WindowNeverExceedsCapacity drives the window with arbitrary
// envelope streams and checks the size and suppression invariants.
func TestProperty_WindowNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(2, 200).Draw(t, "capacity")
		batch := rapid.IntRange(1, capacity).Draw(t, "batch")
		w := NewWindow(capacity, batch)

		processed := make(map[string]int)
		n := rapid.IntRange(1, 500).Draw(t, "inserts")
		for i := 0; i < n; i++ {
			ts := rapid.StringMatching(`t[0-9]{1,3}`).Draw(t, fmt.Sprintf("ts-%d", i))
			env := envelope(wire.EventNodeExecuting, ts, `{}`)

			inWindow := w.Contains(Fingerprint(env))
			got := w.ShouldProcess(env)

			// INVARIANT: a fingerprint already present is never processed again.
			if inWindow {
				require.False(t, got)
			} else {
				require.True(t, got)
			}
			if got {
				processed[Fingerprint(env)]++
			}

			// INVARIANT: size never exceeds capacity.
			require.LessOrEqual(t, w.Len(), capacity)
		}

		// A fingerprint only reprocesses after an eviction made room for it.
		for fp, count := range processed {
			if count > 1 {
				require.Greater(t, n, capacity, "fingerprint %s reprocessed without overflow", fp)
			}
		}
	})
}
