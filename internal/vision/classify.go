package vision

import "github.com/ctrla/ctrla/internal/gesture"

// Local heuristic alphabet.
const (
	SymbolUp     gesture.Symbol = "A"
	SymbolDown   gesture.Symbol = "B"
	SymbolLeft   gesture.Symbol = "C"
	SymbolRight  gesture.Symbol = "D"
	SymbolWide   gesture.Symbol = "E"
	SymbolTall   gesture.Symbol = "F"
	SymbolCenter gesture.Symbol = "G"
)

// Classifier thresholds.
const (
	WideAspect = 1.2
	TallAspect = 0.8
)

// Classify maps a region's position and shape to a symbol.
//
// This is a coarse positional approximation, not gesture recognition. Rules are checked
// in order and the first match wins: center in the upper third → A, lower third → B,
// left third → C, right third → D, aspect > 1.2 → E, aspect < 0.8 → F, otherwise G.
func Classify(r Region, frameWidth, frameHeight int) gesture.Symbol {
	cx, cy := r.Center()
	w := float64(frameWidth)
	h := float64(frameHeight)

	switch {
	case cy < h/3:
		return SymbolUp
	case cy > 2*h/3:
		return SymbolDown
	case cx < w/3:
		return SymbolLeft
	case cx > 2*w/3:
		return SymbolRight
	}

	aspect := r.AspectRatio()
	switch {
	case aspect > WideAspect:
		return SymbolWide
	case aspect < TallAspect:
		return SymbolTall
	default:
		return SymbolCenter
	}
}

// SelectRegion picks the region to classify: the first one discovered in raster order.
func SelectRegion(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}
	return regions[0], true
}
