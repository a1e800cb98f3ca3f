// Package theme holds the copy and palette for each skin of the download form.
//
// Every skin renders the same form state; only titles, button labels,
// user-facing messages and colours differ.
package theme

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/iconidentify/mediaslayer/internal/domain"
)

// Palette holds the colours a front end needs. Values are #rrggbb strings.
type Palette struct {
	Background string `yaml:"background" json:"background"`
	Surface    string `yaml:"surface" json:"surface"`
	Text       string `yaml:"text" json:"text"`
	Muted      string `yaml:"muted" json:"muted"`
	Accent     string `yaml:"accent" json:"accent"`
	Secondary  string `yaml:"secondary" json:"secondary"`
	Error      string `yaml:"error" json:"error"`
	Success    string `yaml:"success" json:"success"`
}

// Theme is one skin of the form.
type Theme struct {
	Name            string  `yaml:"name" json:"name"`
	Title           string  `yaml:"title" json:"title"`
	Tagline         string  `yaml:"tagline" json:"tagline"`
	CardTitle       string  `yaml:"card_title" json:"card_title"`
	CardDescription string  `yaml:"card_description" json:"card_description"`
	URLLabel        string  `yaml:"url_label" json:"url_label"`
	Placeholder     string  `yaml:"placeholder" json:"placeholder"`
	SubmitLabel     string  `yaml:"submit_label" json:"submit_label"`
	BusyLabel       string  `yaml:"busy_label" json:"busy_label"`
	InvalidURL      string  `yaml:"invalid_url" json:"invalid_url"`
	Success         string  `yaml:"success" json:"success"`
	Failure         string  `yaml:"failure" json:"failure"`
	Palette         Palette `yaml:"palette" json:"palette"`
}

const (
	PlainName = "plain"
	QuestName = "quest"
)

var plain = Theme{
	Name:            PlainName,
	Title:           "MediaGrab",
	Tagline:         "Download videos and media from YouTube and X (Twitter) with ease. Fast, simple, and completely free.",
	CardTitle:       "Download Your Media",
	CardDescription: "Paste your YouTube or X URL below and choose your preferred format",
	URLLabel:        "Video URL",
	Placeholder:     "https://youtube.com/watch?v=... or https://x.com/...",
	SubmitLabel:     "Download",
	BusyLabel:       "Processing...",
	InvalidURL:      "Please enter a valid YouTube or X (Twitter) URL",
	Success:         "Download completed successfully!",
	Failure:         "Download failed. Please try again.",
	Palette: Palette{
		Background: "#eff6ff",
		Surface:    "#ffffff",
		Text:       "#1f2937",
		Muted:      "#4b5563",
		Accent:     "#2563eb",
		Secondary:  "#9333ea",
		Error:      "#dc2626",
		Success:    "#16a34a",
	},
}

var quest = Theme{
	Name:            QuestName,
	Title:           "MediaSlayer",
	Tagline:         "Embark on your digital quest to capture and download legendary media from the realms of YouTube and X. Forge your collection!",
	CardTitle:       "Begin Your Quest",
	CardDescription: "Enter the URL of your target media and select your preferred enchantment",
	URLLabel:        "Target URL",
	Placeholder:     "https://youtube.com/watch?v=... or https://x.com/...",
	SubmitLabel:     "Begin Quest",
	BusyLabel:       "Casting download spell...",
	InvalidURL:      "Invalid URL detected! Please enter a valid YouTube or X (Twitter) URL to continue your quest.",
	Success:         "Quest completed! Media successfully captured and added to your inventory!",
	Failure:         "Quest failed! The download spell was interrupted. Try casting again.",
	Palette: Palette{
		Background: "#0f172a",
		Surface:    "#1e293b",
		Text:       "#ffffff",
		Muted:      "#94a3b8",
		Accent:     "#dc2626",
		Secondary:  "#2563eb",
		Error:      "#f87171",
		Success:    "#4ade80",
	},
}

var builtin = map[string]Theme{
	PlainName: plain,
	QuestName: quest,
}

// Default returns the plain theme.
func Default() Theme {
	return plain
}

// Lookup returns the built-in theme with the given name.
func Lookup(name string) (Theme, error) {
	t, ok := builtin[name]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", domain.ErrUnknownTheme, name)
	}
	return t, nil
}

// Names returns the built-in theme names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// overrideFile is the on-disk shape of a theme override.
type overrideFile struct {
	Base  string `yaml:"base"`
	Theme `yaml:",inline"`
}

// LoadFile reads a YAML theme override. The file names a built-in base theme
// and any fields to replace; empty fields keep the base value.
func LoadFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read theme file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML theme override. See LoadFile.
func Parse(data []byte) (Theme, error) {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Theme{}, fmt.Errorf("parse theme file: %w", err)
	}

	baseName := f.Base
	if baseName == "" {
		baseName = PlainName
	}
	base, err := Lookup(baseName)
	if err != nil {
		return Theme{}, err
	}

	return merge(base, f.Theme), nil
}

func merge(base, o Theme) Theme {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.Name, o.Name)
	pick(&base.Title, o.Title)
	pick(&base.Tagline, o.Tagline)
	pick(&base.CardTitle, o.CardTitle)
	pick(&base.CardDescription, o.CardDescription)
	pick(&base.URLLabel, o.URLLabel)
	pick(&base.Placeholder, o.Placeholder)
	pick(&base.SubmitLabel, o.SubmitLabel)
	pick(&base.BusyLabel, o.BusyLabel)
	pick(&base.InvalidURL, o.InvalidURL)
	pick(&base.Success, o.Success)
	pick(&base.Failure, o.Failure)

	pick(&base.Palette.Background, o.Palette.Background)
	pick(&base.Palette.Surface, o.Palette.Surface)
	pick(&base.Palette.Text, o.Palette.Text)
	pick(&base.Palette.Muted, o.Palette.Muted)
	pick(&base.Palette.Accent, o.Palette.Accent)
	pick(&base.Palette.Secondary, o.Palette.Secondary)
	pick(&base.Palette.Error, o.Palette.Error)
	pick(&base.Palette.Success, o.Palette.Success)
	return base
}
