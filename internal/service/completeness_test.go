package service

import (
	"strings"
	"testing"

	"github.com/storyreel/api/internal/model"
)

func gateStory(scenes ...model.Scene) *model.Story {
	return &model.Story{ID: "s1", Scenes: scenes}
}

func TestCheckSceneMessages(t *testing.T) {
	tests := []struct {
		name  string
		scene model.Scene
		ready bool
		want  string
	}{
		{
			name:  "both missing",
			scene: model.Scene{SceneNumber: 1},
			want:  "Please wait for the image to generate and press 'Generate Audio' to complete this scene.",
		},
		{
			name:  "image only",
			scene: model.Scene{SceneNumber: 1, AudioURL: "https://cdn/a.mp3"},
			want:  "Please wait for the image to generate for this scene.",
		},
		{
			name:  "audio only",
			scene: model.Scene{SceneNumber: 1, ImageURL: "https://cdn/i.jpg"},
			want:  "Please press 'Generate Audio' to complete this scene.",
		},
		{
			name:  "complete",
			scene: model.Scene{SceneNumber: 1, ImageURL: "https://cdn/i.jpg", AudioURL: "https://cdn/a.mp3"},
			ready: true,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := CheckScene(&tt.scene)
			if report.Ready() != tt.ready {
				t.Errorf("Ready() = %v, want %v", report.Ready(), tt.ready)
			}
			if got := report.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckStoryListsScenesInOrder(t *testing.T) {
	story := gateStory(
		model.Scene{SceneNumber: 1, ImageURL: "i", AudioURL: "a"},
		model.Scene{SceneNumber: 2, ImageURL: "i"},
		model.Scene{SceneNumber: 3, AudioURL: "a"},
		model.Scene{SceneNumber: 4},
	)

	report := CheckStory(story)
	if report.Ready {
		t.Fatal("incomplete story must not be ready")
	}
	if len(report.MissingImages) != 2 || report.MissingImages[0] != 3 || report.MissingImages[1] != 4 {
		t.Errorf("MissingImages = %v, want [3 4]", report.MissingImages)
	}
	if len(report.MissingAudio) != 2 || report.MissingAudio[0] != 2 || report.MissingAudio[1] != 4 {
		t.Errorf("MissingAudio = %v, want [2 4]", report.MissingAudio)
	}

	msg := report.Message()
	if !strings.Contains(msg, "Please complete all scenes before generating the video.") {
		t.Errorf("missing header in %q", msg)
	}
	if !strings.Contains(msg, "Missing images for scene(s): 3, 4") {
		t.Errorf("missing image list in %q", msg)
	}
	if !strings.Contains(msg, "Missing audio for scene(s): 2, 4") {
		t.Errorf("missing audio list in %q", msg)
	}
	if !strings.Contains(msg, "Press 'Generate Audio' for those scenes.") {
		t.Errorf("missing call to action in %q", msg)
	}
}

func TestCheckStoryReadyHasEmptyLists(t *testing.T) {
	story := gateStory(
		model.Scene{SceneNumber: 1, ImageURL: "i", AudioURL: "a"},
		model.Scene{SceneNumber: 2, ImageURL: "i", AudioURL: "a"},
	)

	report := CheckStory(story)
	if !report.Ready {
		t.Fatal("complete story must be ready")
	}
	if report.MissingImages == nil || report.MissingAudio == nil {
		t.Error("lists must be empty, not nil")
	}
	if len(report.MissingImages) != 0 || len(report.MissingAudio) != 0 {
		t.Errorf("lists must be empty: %v, %v", report.MissingImages, report.MissingAudio)
	}
	if report.Message() != "" {
		t.Errorf("ready story renders no message, got %q", report.Message())
	}
}

// Completing assets never flips a ready scene back to incomplete.
func TestCompletenessIsMonotonic(t *testing.T) {
	scene := model.Scene{SceneNumber: 1}
	if CheckScene(&scene).Ready() {
		t.Fatal("empty scene cannot be ready")
	}
	scene.ImageURL = "https://cdn/i.jpg"
	if CheckScene(&scene).Ready() {
		t.Fatal("image alone is not enough")
	}
	scene.AudioURL = "https://cdn/a.mp3"
	if !CheckScene(&scene).Ready() {
		t.Fatal("both assets present must be ready")
	}

	// Regenerating an asset keeps it ready.
	scene.ImageURL = "https://cdn/i2.jpg"
	if !CheckScene(&scene).Ready() {
		t.Fatal("replacing an asset must not regress readiness")
	}
}

func TestCheckStoryEmptyStoryIsReady(t *testing.T) {
	report := CheckStory(gateStory())
	if !report.Ready {
		t.Error("a story with no scenes has nothing missing")
	}
}
