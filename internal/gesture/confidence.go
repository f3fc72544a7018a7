package gesture

// ConfidenceGate rejects detections whose known confidence is below a threshold.
// Detections without a confidence always pass.
type ConfidenceGate struct {
	// Min applies to every symbol without its own entry. Zero disables it.
	Min float64
	// PerClass overrides Min for individual symbols.
	PerClass map[Symbol]float64
}

// Threshold returns the confidence required for s.
func (g ConfidenceGate) Threshold(s Symbol) float64 {
	if t, ok := g.PerClass[s]; ok {
		return t
	}
	return g.Min
}

// Allows reports whether d passes the gate.
func (g ConfidenceGate) Allows(d Detection) bool {
	if !d.HasConfidence() {
		return true
	}
	return d.Confidence >= g.Threshold(d.Symbol)
}

// DefaultClassThresholds returns the per-class confidence table used by the
// remote recognition service. Classes that are hard to tell apart get a lower
// bar, the ambiguous digits a higher one.
func DefaultClassThresholds() map[Symbol]float64 {
	return map[Symbol]float64{
		"C": 0.22,
		"D": 0.45,
		"U": 0.40,
		"N": 0.20,
		"2": 0.50,
		"1": 0.50,
		"I": 0.30,
	}
}
