package service

import (
	"fmt"
	"strings"

	"github.com/storyreel/api/internal/model"
)

// Completeness gating. These checks are pure: no store access, no
// network. Callers load the story and pass it in.

// SceneReport describes what a single scene is still missing.
type SceneReport struct {
	SceneNumber  int  `json:"sceneNumber"`
	MissingImage bool `json:"missingImage"`
	MissingAudio bool `json:"missingAudio"`
}

// Ready reports whether the scene can be advanced past.
func (r SceneReport) Ready() bool {
	return !r.MissingImage && !r.MissingAudio
}

// Message renders the per-scene gate message. The combined case wins
// when both assets are missing.
func (r SceneReport) Message() string {
	switch {
	case r.MissingImage && r.MissingAudio:
		return "Please wait for the image to generate and press 'Generate Audio' to complete this scene."
	case r.MissingImage:
		return "Please wait for the image to generate for this scene."
	case r.MissingAudio:
		return "Please press 'Generate Audio' to complete this scene."
	default:
		return ""
	}
}

// CompletenessReport aggregates missing assets across all scenes of a story.
type CompletenessReport struct {
	Ready         bool  `json:"ready"`
	MissingImages []int `json:"missingImages"`
	MissingAudio  []int `json:"missingAudio"`
}

// Message renders the aggregate gate message listing every incomplete scene.
func (r CompletenessReport) Message() string {
	if r.Ready {
		return ""
	}
	var b strings.Builder
	b.WriteString("Please complete all scenes before generating the video.\n")
	if len(r.MissingImages) > 0 {
		b.WriteString(fmt.Sprintf("Missing images for scene(s): %s\n", joinInts(r.MissingImages)))
	}
	if len(r.MissingAudio) > 0 {
		b.WriteString(fmt.Sprintf("Missing audio for scene(s): %s\nPress 'Generate Audio' for those scenes.", joinInts(r.MissingAudio)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// CheckScene gates forward navigation from one scene.
func CheckScene(sc *model.Scene) SceneReport {
	return SceneReport{
		SceneNumber:  sc.SceneNumber,
		MissingImage: sc.ImageURL == "",
		MissingAudio: sc.AudioURL == "",
	}
}

// CheckStory gates render submission across every scene. Lists are
// ordered by scene position; empty lists mean ready.
func CheckStory(st *model.Story) CompletenessReport {
	report := CompletenessReport{
		MissingImages: []int{},
		MissingAudio:  []int{},
	}
	for i := range st.Scenes {
		sc := &st.Scenes[i]
		if sc.ImageURL == "" {
			report.MissingImages = append(report.MissingImages, sc.SceneNumber)
		}
		if sc.AudioURL == "" {
			report.MissingAudio = append(report.MissingAudio, sc.SceneNumber)
		}
	}
	report.Ready = len(report.MissingImages) == 0 && len(report.MissingAudio) == 0
	return report
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
