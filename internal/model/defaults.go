package model

// Render and image-generation defaults. The renderer expects every scene
// annotated with an animation descriptor and the request to carry caption
// styling; these are the fixed values used for all submissions.

// DefaultAnimation is the fixed per-scene animation descriptor.
func DefaultAnimation() SceneAnimation {
	return SceneAnimation{Type: "zoom_in", StartScale: 1.0, EndScale: 1.2}
}

// DefaultCaptionSettings is the fixed caption styling for rendered videos.
func DefaultCaptionSettings() CaptionSettings {
	return CaptionSettings{
		Enabled:       true,
		Position:      "bottom",
		FontName:      "DejaVuSans-Bold",
		FontSizeRatio: 0.035,
		Color:         "white",
		ShadowColor:   "black",
	}
}

// Image generation defaults.
const (
	DefaultNegativePrompt  = ""
	DefaultInferenceSteps  = 18
	DefaultGuidanceScale   = 5.0
	DefaultNumImages       = 1
	DefaultOutputFormat    = "jpeg"
	DefaultStyleName       = "(No style)"
	DefaultSeed            = 100
	DefaultSafetyCheckerOn = true
)

// SizeForOrientation maps an aspect-ratio label to render dimensions.
// Unknown labels fall back to portrait.
func SizeForOrientation(orientation string) (width, height int) {
	switch orientation {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "1:1":
		return 1080, 1080
	default:
		return 1080, 1920
	}
}
