// Package model holds the domain types, wire contracts and request
// bodies shared across the service.
package model

import "time"

// HomeSettings captures the user's story setup choices.
type HomeSettings struct {
	Title       string `json:"title"`
	Language    string `json:"language"`
	Voice       string `json:"voice"`
	Orientation string `json:"orientation"`
	Style       string `json:"style"`
	SceneCount  int    `json:"sceneCount"`
}

// Scene is one scene of a story. SceneNumber is the stable identity;
// asset write-backs always address scenes by number, not position.
type Scene struct {
	SceneNumber int    `json:"sceneNumber"`
	ImagePrompt string `json:"imagePrompt"`
	AudioPrompt string `json:"audioPrompt"`
	ImageURL    string `json:"imageUrl,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty"`
	AudioJobID  string `json:"audioJobId,omitempty"`
}

// Complete reports whether the scene has both of its assets.
func (s *Scene) Complete() bool {
	return s.ImageURL != "" && s.AudioURL != ""
}

// VideoRecord is the render outcome attached to a story.
type VideoRecord struct {
	JobID       string `json:"jobId"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Story is the unit of persistence: settings, ordered scenes and the
// render outcome if one exists.
type Story struct {
	ID        string       `json:"id"`
	Settings  HomeSettings `json:"settings"`
	Scenes    []Scene      `json:"scenes"`
	Video     *VideoRecord `json:"video,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SceneByNumber returns a pointer into the story's scene slice, or nil
// when no scene carries the number.
func (st *Story) SceneByNumber(n int) *Scene {
	for i := range st.Scenes {
		if st.Scenes[i].SceneNumber == n {
			return &st.Scenes[i]
		}
	}
	return nil
}
