package gesture

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := NewVocabulary(
		map[Symbol]string{"B": "music"},
		map[string]string{"ABC": "help", "XYZ": "stop"},
	)
	if err != nil {
		t.Fatalf("NewVocabulary() error = %v", err)
	}
	return v
}

func at(base time.Time, ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

func TestBuffer_SequenceMatchClearsBuffer(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: time.Second})

	b.Offer(Detection{Symbol: "A", At: at(base, 0)})
	b.Offer(Detection{Symbol: "B", At: at(base, 1000)})
	res := b.Offer(Detection{Symbol: "C", At: at(base, 2000)})

	if !res.Accepted {
		t.Fatalf("expected C to be accepted, dropped = %q", res.Dropped)
	}
	if len(res.Resolutions) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(res.Resolutions))
	}
	got := res.Resolutions[0]
	if got.Command != "help" || got.Kind != KindSequence {
		t.Errorf("resolution = %s/%s, want help/sequence", got.Command, got.Kind)
	}
	if diff := cmp.Diff([]Symbol{"A", "B", "C"}, got.Symbols); diff != "" {
		t.Errorf("matched symbols mismatch (-want +got):\n%s", diff)
	}
	if b.Len() != 0 {
		t.Errorf("buffer should be empty after a sequence match, got %v", b.Symbols())
	}
}

func TestBuffer_SequenceMatchIsExact(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: time.Second})

	b.Offer(Detection{Symbol: "A", At: at(base, 0)})
	b.Offer(Detection{Symbol: "B", At: at(base, 1000)})
	res := b.Offer(Detection{Symbol: "X", At: at(base, 2000)})

	for _, r := range res.Resolutions {
		if r.Kind == KindSequence {
			t.Errorf("A,B,X must not resolve a sequence, got %q", r.Command)
		}
	}
	if diff := cmp.Diff([]Symbol{"A", "B", "X"}, b.Symbols()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestBuffer_DirectMapKeepsSymbol(t *testing.T) {
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: time.Second})

	res := b.Offer(Detection{Symbol: "B", At: time.Unix(10, 0)})

	if len(res.Resolutions) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(res.Resolutions))
	}
	if res.Resolutions[0].Command != "music" || res.Resolutions[0].Kind != KindDirect {
		t.Errorf("resolution = %+v, want music/direct", res.Resolutions[0])
	}
	if diff := cmp.Diff([]Symbol{"B"}, b.Symbols()); diff != "" {
		t.Errorf("direct symbol should stay buffered (-want +got):\n%s", diff)
	}
}

func TestBuffer_DirectSymbolCompletesSequence(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: time.Second})

	b.Offer(Detection{Symbol: "A", At: at(base, 0)})
	res := b.Offer(Detection{Symbol: "B", At: at(base, 1000)})
	if len(res.Resolutions) != 1 || res.Resolutions[0].Command != "music" {
		t.Fatalf("expected direct music on B, got %+v", res.Resolutions)
	}
	res = b.Offer(Detection{Symbol: "C", At: at(base, 2000)})
	if len(res.Resolutions) != 1 || res.Resolutions[0].Command != "help" {
		t.Fatalf("expected sequence help on C, got %+v", res.Resolutions)
	}
}

func TestBuffer_CooldownDropsFastSymbols(t *testing.T) {
	base := time.Unix(1000, 0)
	cooldown := time.Second
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: cooldown})

	var accepted []time.Time
	// Offer every 100ms for 5 seconds.
	for i := 0; i < 50; i++ {
		ts := at(base, i*100)
		if res := b.Offer(Detection{Symbol: "Q", At: ts}); res.Accepted {
			accepted = append(accepted, ts)
		} else if res.Dropped != DropCooldown {
			t.Fatalf("unexpected drop reason %q", res.Dropped)
		}
	}

	stats := b.Stats()
	if stats.Offered != 50 {
		t.Errorf("Offered = %d, want 50", stats.Offered)
	}
	if stats.Accepted != 5 {
		t.Errorf("Accepted = %d, want 5", stats.Accepted)
	}
	if stats.Accepted+stats.Dropped != stats.Offered {
		t.Errorf("accepted + dropped != offered: %+v", stats)
	}
	for i := 1; i < len(accepted); i++ {
		if gap := accepted[i].Sub(accepted[i-1]); gap < cooldown {
			t.Errorf("accepted symbols %d and %d are %v apart, want >= %v", i-1, i, gap, cooldown)
		}
	}
}

func TestBuffer_DroppedSymbolIsNotBuffered(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: time.Second})

	b.Offer(Detection{Symbol: "A", At: at(base, 0)})
	res := b.Offer(Detection{Symbol: "B", At: at(base, 500)})

	if res.Accepted || len(res.Resolutions) != 0 {
		t.Errorf("symbol inside cooldown must be dropped silently, got %+v", res)
	}
	if diff := cmp.Diff([]Symbol{"A"}, b.Symbols()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestBuffer_ConfidenceGate(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{
		MinConfidence:   0.65,
		ClassThresholds: map[Symbol]float64{"C": 0.22},
	})

	tests := []struct {
		name       string
		detection  Detection
		wantAccept bool
	}{
		{"below default threshold", Detection{Symbol: "A", Confidence: 0.5}, false},
		{"above default threshold", Detection{Symbol: "A", Confidence: 0.7}, true},
		{"per-class override", Detection{Symbol: "C", Confidence: 0.3}, true},
		{"unknown confidence passes", Detection{Symbol: "A", Confidence: NoConfidence}, true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.detection.At = at(base, i*10)
			res := b.Offer(tt.detection)
			if res.Accepted != tt.wantAccept {
				t.Errorf("Accepted = %v, want %v (dropped %q)", res.Accepted, tt.wantAccept, res.Dropped)
			}
		})
	}
}

func TestBuffer_MaxLen(t *testing.T) {
	b := NewBuffer(testVocabulary(t), BufferConfig{MaxLen: 4})
	base := time.Unix(1000, 0)

	for i, s := range []Symbol{"1", "2", "3", "4", "5", "6"} {
		b.Offer(Detection{Symbol: s, At: at(base, i)})
	}

	if diff := cmp.Diff([]Symbol{"3", "4", "5", "6"}, b.Symbols()); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestBuffer_EmptySymbol(t *testing.T) {
	b := NewBuffer(testVocabulary(t), BufferConfig{})

	res := b.Offer(Detection{})
	if res.Accepted || res.Dropped != DropEmpty {
		t.Errorf("empty symbol result = %+v", res)
	}
}

func TestBuffer_ClearKeepsCooldown(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{Cooldown: time.Second})

	b.Offer(Detection{Symbol: "A", At: base})
	b.Clear()

	if b.Len() != 0 {
		t.Fatalf("Len() = %d after Clear", b.Len())
	}
	if res := b.Offer(Detection{Symbol: "A", At: at(base, 200)}); res.Accepted {
		t.Error("Clear must not reset the cooldown clock")
	}
}

func TestBuffer_UsesClockWhenDetectionHasNoTime(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBuffer(testVocabulary(t), BufferConfig{
		Cooldown: time.Second,
		Now:      func() time.Time { return now },
	})

	if !b.Offer(Detection{Symbol: "A"}).Accepted {
		t.Fatal("first symbol should be accepted")
	}
	if b.Offer(Detection{Symbol: "A"}).Accepted {
		t.Fatal("same instant should be inside cooldown")
	}
	now = now.Add(time.Second)
	if !b.Offer(Detection{Symbol: "A"}).Accepted {
		t.Fatal("symbol exactly one cooldown later should be accepted")
	}
}

func TestConfidenceGate(t *testing.T) {
	gate := ConfidenceGate{Min: 0.65, PerClass: DefaultClassThresholds()}

	tests := []struct {
		name      string
		detection Detection
		want      bool
	}{
		{"default threshold", Detection{Symbol: "A", Confidence: 0.6}, false},
		{"C uses its own lower bar", Detection{Symbol: "C", Confidence: 0.25}, true},
		{"N below its bar", Detection{Symbol: "N", Confidence: 0.1}, false},
		{"digit needs 0.5", Detection{Symbol: "1", Confidence: 0.49}, false},
		{"no confidence", Detection{Symbol: "A", Confidence: NoConfidence}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Allows(tt.detection); got != tt.want {
				t.Errorf("Allows(%+v) = %v, want %v", tt.detection, got, tt.want)
			}
		})
	}

	if got := (ConfidenceGate{}).Threshold("A"); got != 0 {
		t.Errorf("zero gate threshold = %v, want 0", got)
	}
}
