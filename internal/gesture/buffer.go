package gesture

import (
	"sync"
	"time"
)

// Kind tells which matching strategy resolved a command.
type Kind string

const (
	// KindDirect is a one-symbol command lookup.
	KindDirect Kind = "direct"
	// KindSequence is a trailing-window sequence lookup.
	KindSequence Kind = "sequence"
)

// DropReason explains why an offered detection was not accepted.
type DropReason string

const (
	DropNone       DropReason = ""
	DropEmpty      DropReason = "empty"
	DropCooldown   DropReason = "cooldown"
	DropConfidence DropReason = "confidence"
)

// DefaultMaxLen bounds the number of symbols retained between resets.
const DefaultMaxLen = 32

// Resolution is a command resolved from the buffer.
type Resolution struct {
	Command   string
	Kind      Kind
	Symbols   []Symbol
	Detection Detection
}

// Result is the outcome of a single Offer.
type Result struct {
	Accepted    bool
	Dropped     DropReason
	Resolutions []Resolution
}

// BufferConfig tunes the Buffer.
type BufferConfig struct {
	// Cooldown is the minimum gap between two accepted symbols.
	Cooldown time.Duration
	// MaxLen bounds retained symbols; values below the vocabulary sequence length are raised.
	MaxLen int
	// MinConfidence drops detections whose known confidence is lower. Zero disables the gate.
	MinConfidence float64
	// ClassThresholds overrides MinConfidence for individual symbols.
	ClassThresholds map[Symbol]float64
	// Now supplies the time for detections that carry none.
	Now func() time.Time
}

// Stats counts offered, accepted and dropped detections.
type Stats struct {
	Offered  int
	Accepted int
	Dropped  int
}

// Buffer accumulates accepted symbols and resolves them against a Vocabulary.
type Buffer struct {
	vocab *Vocabulary
	cfg   BufferConfig

	mu           sync.Mutex
	symbols      []Symbol
	lastAccepted time.Time
	hasAccepted  bool
	stats        Stats
}

// NewBuffer creates a Buffer for the given vocabulary.
func NewBuffer(vocab *Vocabulary, cfg BufferConfig) *Buffer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultMaxLen
	}
	if n := vocab.SequenceLength(); cfg.MaxLen < n {
		cfg.MaxLen = n
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Buffer{
		vocab:   vocab,
		cfg:     cfg,
		symbols: make([]Symbol, 0, cfg.MaxLen),
	}
}

// Offer runs one detection through the cooldown gate and both matchers.
//
// A direct-map hit resolves immediately and leaves the buffer intact; the symbol is still
// appended so it can complete a sequence. A sequence hit clears the buffer. When both fire
// on the same symbol the direct resolution comes first.
func (b *Buffer) Offer(d Detection) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.Offered++

	if d.Symbol == "" {
		b.stats.Dropped++
		return Result{Dropped: DropEmpty}
	}
	if d.At.IsZero() {
		d.At = b.cfg.Now()
	}

	if b.hasAccepted && d.At.Sub(b.lastAccepted) < b.cfg.Cooldown {
		b.stats.Dropped++
		return Result{Dropped: DropCooldown}
	}

	if !b.passesConfidence(d) {
		b.stats.Dropped++
		return Result{Dropped: DropConfidence}
	}

	b.lastAccepted = d.At
	b.hasAccepted = true
	b.stats.Accepted++

	result := Result{Accepted: true}

	if cmd, ok := b.vocab.Direct(d.Symbol); ok {
		result.Resolutions = append(result.Resolutions, Resolution{
			Command:   cmd,
			Kind:      KindDirect,
			Symbols:   []Symbol{d.Symbol},
			Detection: d,
		})
	}

	if len(b.symbols) >= b.cfg.MaxLen {
		copy(b.symbols, b.symbols[1:])
		b.symbols = b.symbols[:b.cfg.MaxLen-1]
	}
	b.symbols = append(b.symbols, d.Symbol)

	if n := b.vocab.SequenceLength(); n > 0 && len(b.symbols) >= n {
		window := b.symbols[len(b.symbols)-n:]
		if cmd, ok := b.vocab.Sequence(window); ok {
			matched := make([]Symbol, n)
			copy(matched, window)
			result.Resolutions = append(result.Resolutions, Resolution{
				Command:   cmd,
				Kind:      KindSequence,
				Symbols:   matched,
				Detection: d,
			})
			b.symbols = b.symbols[:0]
		}
	}

	return result
}

func (b *Buffer) passesConfidence(d Detection) bool {
	return ConfidenceGate{Min: b.cfg.MinConfidence, PerClass: b.cfg.ClassThresholds}.Allows(d)
}

// Symbols returns a copy of the buffered symbols, oldest first.
func (b *Buffer) Symbols() []Symbol {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Symbol, len(b.symbols))
	copy(out, b.symbols)
	return out
}

// String renders the buffered symbols as one string.
func (b *Buffer) String() string {
	return joinSymbols(b.Symbols())
}

// Len returns the number of buffered symbols.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.symbols)
}

// Clear empties the buffer. The cooldown clock is not reset.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.symbols = b.symbols[:0]
}

// Stats returns the offer counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Cooldown returns the configured cooldown.
func (b *Buffer) Cooldown() time.Duration {
	return b.cfg.Cooldown
}

// Vocabulary returns the vocabulary used for matching.
func (b *Buffer) Vocabulary() *Vocabulary {
	return b.vocab
}
