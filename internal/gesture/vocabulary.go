package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVocabulary is returned when a vocabulary's sequences disagree in length.
var ErrInvalidVocabulary = errors.New("invalid vocabulary")

// Vocabulary maps single symbols and fixed-length symbol sequences to command names.
// It is read-only once built.
type Vocabulary struct {
	direct    map[Symbol]string
	sequences map[string]string
	seqLen    int
}

// NewVocabulary builds a Vocabulary. Every sequence key must have the same number of
// symbols; sequence keys are written as concatenated single-character symbols ("ABC").
func NewVocabulary(direct map[Symbol]string, sequences map[string]string) (*Vocabulary, error) {
	v := &Vocabulary{
		direct:    make(map[Symbol]string, len(direct)),
		sequences: make(map[string]string, len(sequences)),
	}

	for sym, cmd := range direct {
		if sym == "" || cmd == "" {
			return nil, fmt.Errorf("%w: empty direct entry %q -> %q", ErrInvalidVocabulary, sym, cmd)
		}
		v.direct[sym] = cmd
	}

	for seq, cmd := range sequences {
		n := len([]rune(seq))
		if n == 0 || cmd == "" {
			return nil, fmt.Errorf("%w: empty sequence entry %q -> %q", ErrInvalidVocabulary, seq, cmd)
		}
		if v.seqLen == 0 {
			v.seqLen = n
		} else if n != v.seqLen {
			return nil, fmt.Errorf("%w: sequence %q has length %d, want %d", ErrInvalidVocabulary, seq, n, v.seqLen)
		}
		v.sequences[seq] = cmd
	}

	return v, nil
}

// MustVocabulary is like NewVocabulary but panics on error. Intended for static tables.
func MustVocabulary(direct map[Symbol]string, sequences map[string]string) *Vocabulary {
	v, err := NewVocabulary(direct, sequences)
	if err != nil {
		panic(err)
	}
	return v
}

// Direct returns the command mapped to a single symbol.
func (v *Vocabulary) Direct(s Symbol) (string, bool) {
	cmd, ok := v.direct[s]
	return cmd, ok
}

// Sequence returns the command mapped to an exact symbol sequence.
func (v *Vocabulary) Sequence(symbols []Symbol) (string, bool) {
	if len(symbols) != v.seqLen || v.seqLen == 0 {
		return "", false
	}
	cmd, ok := v.sequences[joinSymbols(symbols)]
	return cmd, ok
}

// SequenceLength is the window size N used for sequence matching (0 if none).
func (v *Vocabulary) SequenceLength() int {
	return v.seqLen
}

// Commands returns every command name reachable through the vocabulary.
func (v *Vocabulary) Commands() []string {
	seen := make(map[string]bool)
	var out []string
	for _, cmd := range v.direct {
		if !seen[cmd] {
			seen[cmd] = true
			out = append(out, cmd)
		}
	}
	for _, cmd := range v.sequences {
		if !seen[cmd] {
			seen[cmd] = true
			out = append(out, cmd)
		}
	}
	return out
}

func joinSymbols(symbols []Symbol) string {
	var b strings.Builder
	for _, s := range symbols {
		b.WriteString(string(s))
	}
	return b.String()
}

// DefaultVocabulary returns the built-in command table.
// The local heuristic alphabet A-G maps one-to-one onto the main application sections;
// every other command is spelled as a three-letter sequence.
func DefaultVocabulary() *Vocabulary {
	return MustVocabulary(
		map[Symbol]string{
			"A": "assistant",
			"B": "music",
			"C": "camera",
			"D": "legal",
			"E": "schemes",
			"F": "tasks",
			"G": "help",
		},
		map[string]string{
			"CLR": "clear",
			"STP": "stop",
			"STR": "start",
			"YES": "yes",
			"NOO": "no",
			"MOR": "more",
			"NXT": "next",
			"OKK": "ok",
			"PLY": "play",
			"QUT": "quit",
			"RPT": "repeat",
			"SPC": "space",
			"TIM": "time",
			"UPP": "up",
			"DWN": "down",
			"WAT": "wait",
			"EXT": "exit",
			"ZRO": "zero",
			"HLP": "help",
		},
	)
}
