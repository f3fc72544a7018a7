// Package testdata builds synthetic camera frames for tests.
package testdata

import (
	"fmt"

	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/vision"
)

// Frame geometry used by every fixture.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// Skin is a colour accepted by the skin rule.
var Skin = [3]uint8{200, 140, 110}

type rect struct {
	x0, y0, x1, y1 int
}

// symbolRegions places one skin rectangle per local symbol. Each lies on the
// default stride grid and is large enough to pass the default minimum area.
var symbolRegions = map[gesture.Symbol]rect{
	vision.SymbolUp:     {220, 0, 420, 200},
	vision.SymbolDown:   {20, 280, 220, 480},
	vision.SymbolLeft:   {0, 140, 200, 340},
	vision.SymbolRight:  {440, 140, 640, 340},
	vision.SymbolWide:   {40, 190, 600, 290},
	vision.SymbolTall:   {260, 40, 380, 440},
	vision.SymbolCenter: {220, 140, 420, 340},
}

// BlankFrame returns an all-black frame.
func BlankFrame() *vision.Frame {
	return vision.NewFrame(FrameWidth, FrameHeight)
}

// RegionFrame returns a black frame with a skin rectangle [x0,x1)×[y0,y1).
func RegionFrame(x0, y0, x1, y1 int) *vision.Frame {
	f := BlankFrame()
	f.Fill(x0, y0, x1, y1, Skin[0], Skin[1], Skin[2])
	return f
}

// SymbolFrame returns a frame the local detector classifies as s.
func SymbolFrame(s gesture.Symbol) (*vision.Frame, error) {
	r, ok := symbolRegions[s]
	if !ok {
		return nil, fmt.Errorf("no fixture for symbol %q", s)
	}
	return RegionFrame(r.x0, r.y0, r.x1, r.y1), nil
}

// LoadSequence returns one frame per symbol, in order.
func LoadSequence(symbols ...gesture.Symbol) ([]*vision.Frame, error) {
	frames := make([]*vision.Frame, 0, len(symbols))
	for _, s := range symbols {
		f, err := SymbolFrame(s)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Symbols lists every symbol that has a fixture.
func Symbols() []gesture.Symbol {
	return []gesture.Symbol{
		vision.SymbolUp,
		vision.SymbolDown,
		vision.SymbolLeft,
		vision.SymbolRight,
		vision.SymbolWide,
		vision.SymbolTall,
		vision.SymbolCenter,
	}
}
