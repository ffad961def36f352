package types

// Sex encodes patient sex the way the trained pipeline expects it.
type Sex int

const (
	SexFemale Sex = 0
	SexMale   Sex = 1
)

// Slider bounds. The form widgets enforce these, but the server clamps
// anyway so an out-of-range value can never reach the pipeline.
const (
	AgeMin = 20
	AgeMax = 90

	SliderMin = 0
	SliderMax = 10
)

// SliderInputs is one prediction request's worth of patient inputs.
// Immutable for the duration of a request.
type SliderInputs struct {
	Age             int `json:"age"`
	Sex             Sex `json:"sex"`
	Tremor          int `json:"tremor"`
	VoiceClarity    int `json:"voice_clarity"`
	SpeechStability int `json:"speech_stability"`
	Distortion      int `json:"distortion"`
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamped returns a copy with every field forced into its documented range.
func (s SliderInputs) Clamped() SliderInputs {
	out := s
	out.Age = clampInt(s.Age, AgeMin, AgeMax)
	if s.Sex != SexMale {
		out.Sex = SexFemale
	}
	out.Tremor = clampInt(s.Tremor, SliderMin, SliderMax)
	out.VoiceClarity = clampInt(s.VoiceClarity, SliderMin, SliderMax)
	out.SpeechStability = clampInt(s.SpeechStability, SliderMin, SliderMax)
	out.Distortion = clampInt(s.Distortion, SliderMin, SliderMax)
	return out
}

// DefaultInputs mirrors the form's initial widget values.
func DefaultInputs() SliderInputs {
	return SliderInputs{
		Age:             60,
		Sex:             SexMale,
		Tremor:          5,
		VoiceClarity:    5,
		SpeechStability: 5,
		Distortion:      5,
	}
}

// PredictRequest is the body of POST /predict. Out-of-range or missing
// input values are clamped, never rejected, so there are no binding rules
// beyond well-formed JSON.
type PredictRequest struct {
	Inputs SliderInputs `json:"inputs"`
}

// PredictResponse is the body returned by POST /predict. Severity is the
// raw model output; SeverityDisplay is rounded to two decimals, which is
// how the form presents it.
type PredictResponse struct {
	Severity        float64 `json:"severity"`
	SeverityDisplay string  `json:"severity_display"`
	FeatureCount    int     `json:"feature_count"`
	ReducedCount    int     `json:"reduced_count"`
}

// SliderInfo describes one form widget for GET /schema consumers.
type SliderInfo struct {
	Name        string `json:"name"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Default     int    `json:"default"`
	Description string `json:"description"`
}

// SliderCatalog lists the form widgets in display order.
func SliderCatalog() []SliderInfo {
	return []SliderInfo{
		{Name: "age", Min: AgeMin, Max: AgeMax, Default: 60, Description: "Patient age in years"},
		{Name: "sex", Min: 0, Max: 1, Default: 1, Description: "Patient sex (1 = male, 0 = female)"},
		{Name: "tremor", Min: SliderMin, Max: SliderMax, Default: 5, Description: "Hand and limb tremor severity"},
		{Name: "voice_clarity", Min: SliderMin, Max: SliderMax, Default: 5, Description: "Higher clarity means clearer speech"},
		{Name: "speech_stability", Min: SliderMin, Max: SliderMax, Default: 5, Description: "Smoothness of vocal fold vibration"},
		{Name: "distortion", Min: SliderMin, Max: SliderMax, Default: 5, Description: "Irregularity of the speech signal (jitter/shimmer level)"},
	}
}
