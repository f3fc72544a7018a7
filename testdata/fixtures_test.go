package testdata

import (
	"testing"

	"github.com/ctrla/ctrla/internal/detector"
	"github.com/ctrla/ctrla/internal/vision"
)

func TestSymbolFrame_ClassifiesAsSymbol(t *testing.T) {
	d := detector.NewLocalDetector(vision.DefaultRegionDetectorConfig())

	for _, want := range Symbols() {
		t.Run(string(want), func(t *testing.T) {
			f, err := SymbolFrame(want)
			if err != nil {
				t.Fatalf("SymbolFrame() error = %v", err)
			}

			got, err := d.Detect(f)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Detect() returned %d detections, want 1", len(got))
			}
			if got[0].Symbol != want {
				t.Errorf("Symbol = %s, want %s", got[0].Symbol, want)
			}
		})
	}
}

func TestBlankFrame_NoDetection(t *testing.T) {
	d := detector.NewLocalDetector(vision.DefaultRegionDetectorConfig())

	got, err := d.Detect(BlankFrame())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Detect() = %v, want none", got)
	}
}

func TestSymbolFrame_Unknown(t *testing.T) {
	if _, err := SymbolFrame("Q"); err == nil {
		t.Error("expected error for symbol without fixture")
	}
}
