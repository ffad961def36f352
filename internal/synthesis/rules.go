package synthesis

import (
	"strings"

	"github.com/voicemetrics/updrs-meter/internal/types"
)

// Clinical value ranges per biomarker family, taken from the reference
// voice-measurement dataset the pipeline was trained on.
const (
	jitterLo, jitterHi   = 0.0001, 0.010
	shimmerLo, shimmerHi = 0.01, 0.2
	nhrLo, nhrHi         = 0.0, 0.30
	hnrLo, hnrHi         = 5.0, 35.0
	rpdeLo, rpdeHi       = 0.30, 0.65
	dfaLo, dfaHi         = 0.50, 1.30
	ppeLo, ppeHi         = 0.02, 0.30

	// Fallback range for feature names no rule recognizes.
	genericLo, genericHi = 0.1, 1.0
)

// rule pairs a feature-name predicate with the handler that produces the
// value for matching schema positions. Rules are evaluated in declaration
// order and the first match wins, so broader substrings must come later.
type rule struct {
	label string
	match func(name string) bool
	value func(in types.SliderInputs) float64
}

func containsFold(name, sub string) bool {
	return strings.Contains(strings.ToLower(name), sub)
}

// ruleTable is the full name-substring dispatch table. NHR and HNR are
// matched case-sensitively: the dataset spells both in upper case and a
// folded match would confuse one for the other inside longer names.
var ruleTable = []rule{
	{
		label: "age",
		match: func(name string) bool { return containsFold(name, "age") },
		value: func(in types.SliderInputs) float64 { return float64(in.Age) },
	},
	{
		label: "sex",
		match: func(name string) bool { return containsFold(name, "sex") },
		value: func(in types.SliderInputs) float64 { return float64(in.Sex) },
	},
	{
		label: "jitter",
		match: func(name string) bool { return containsFold(name, "jitter") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(in.Distortion), 0, 10, jitterLo, jitterHi)
		},
	},
	{
		label: "shimmer",
		match: func(name string) bool { return containsFold(name, "shimmer") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(in.Distortion), 0, 10, shimmerLo, shimmerHi)
		},
	},
	{
		label: "nhr",
		match: func(name string) bool { return strings.Contains(name, "NHR") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(10-in.VoiceClarity), 0, 10, nhrLo, nhrHi)
		},
	},
	{
		label: "hnr",
		match: func(name string) bool { return strings.Contains(name, "HNR") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(in.VoiceClarity), 0, 10, hnrLo, hnrHi)
		},
	},
	{
		label: "rpde",
		match: func(name string) bool { return containsFold(name, "rpde") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(10-in.SpeechStability), 0, 10, rpdeLo, rpdeHi)
		},
	},
	{
		label: "dfa",
		match: func(name string) bool { return containsFold(name, "dfa") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(10-in.Tremor), 0, 10, dfaLo, dfaHi)
		},
	},
	{
		label: "ppe",
		match: func(name string) bool { return containsFold(name, "ppe") },
		value: func(in types.SliderInputs) float64 {
			return interp(float64(in.Distortion+(10-in.SpeechStability)), 0, 20, ppeLo, ppeHi)
		},
	},
}

// fallbackValue covers schema positions no rule matched.
func fallbackValue(in types.SliderInputs) float64 {
	return interp(float64(in.Distortion), 0, 10, genericLo, genericHi)
}

// RuleFor returns the label of the rule that would handle name, or
// "generic" for the fallback. Exposed for the /schema endpoint so the
// form can show which slider drives which biomarker.
func RuleFor(name string) string {
	for _, r := range ruleTable {
		if r.match(name) {
			return r.label
		}
	}
	return "generic"
}
