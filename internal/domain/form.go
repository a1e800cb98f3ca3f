package domain

import (
	"time"
)

// FormID is a unique identifier for a form instance.
type FormID string

// String returns the string representation of the FormID.
func (id FormID) String() string {
	return string(id)
}

// SessionID identifies one simulated download session.
type SessionID string

// String returns the string representation of the SessionID.
func (id SessionID) String() string {
	return string(id)
}

// Format is the requested output container.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatMP3  Format = "mp3"
	FormatWEBM Format = "webm"
	FormatWAV  Format = "wav"

	DefaultFormat = FormatMP4
)

// Formats lists the selectable formats in display order.
var Formats = []Format{FormatMP4, FormatMP3, FormatWEBM, FormatWAV}

// ParseFormat converts s into a Format.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", ErrInvalidFormat
}

// AudioOnly reports whether the format carries no video stream.
func (f Format) AudioOnly() bool {
	return f == FormatMP3 || f == FormatWAV
}

// Label returns the selector label for the format.
func (f Format) Label() string {
	switch f {
	case FormatMP4:
		return "MP4 (Video)"
	case FormatMP3:
		return "MP3 (Audio)"
	case FormatWEBM:
		return "WEBM (Video)"
	case FormatWAV:
		return "WAV (Audio)"
	}
	return string(f)
}

// Quality is the requested video resolution.
type Quality string

const (
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
	Quality360p  Quality = "360p"

	DefaultQuality = Quality720p
)

// Qualities lists the selectable qualities in display order.
var Qualities = []Quality{Quality1080p, Quality720p, Quality480p, Quality360p}

// ParseQuality converts s into a Quality.
func ParseQuality(s string) (Quality, error) {
	for _, q := range Qualities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", ErrInvalidQuality
}

// Label returns the selector label for the quality.
func (q Quality) Label() string {
	switch q {
	case Quality1080p:
		return "1080p (Full HD)"
	case Quality720p:
		return "720p (HD)"
	case Quality480p:
		return "480p (SD)"
	case Quality360p:
		return "360p (Low)"
	}
	return string(q)
}

// FormState represents the submission workflow state.
type FormState string

const (
	FormStateIdle       FormState = "idle"
	FormStateValidating FormState = "validating"
	FormStateRunning    FormState = "running"
	FormStateCompleting FormState = "completing"
)

// FormSnapshot is a point-in-time copy of a form's view state.
type FormSnapshot struct {
	ID        FormID    `json:"id,omitempty"`
	Theme     string    `json:"theme"`
	URL       string    `json:"url"`
	Platform  Platform  `json:"platform"`
	Format    Format    `json:"format"`
	Quality   Quality   `json:"quality"`
	State     FormState `json:"state"`
	IsLoading bool      `json:"is_loading"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Success   string    `json:"success,omitempty"`
	SessionID SessionID `json:"session_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormPatch carries optional field updates for a form. Nil fields are left
// unchanged.
type FormPatch struct {
	URL     *string
	Format  *Format
	Quality *Quality
}

// FormStats summarizes the forms currently held in memory.
type FormStats struct {
	Total      int `json:"total"`
	Idle       int `json:"idle"`
	Running    int `json:"running"`
	Completing int `json:"completing"`

	// Subscribers counts open snapshot streams across all forms.
	Subscribers int `json:"subscribers"`
}
