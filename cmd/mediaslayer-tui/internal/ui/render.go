package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/rivo/tview"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

const barWidth = 40

// progressText renders a tview-coloured progress bar such as
// "[#dc2626]██████[#94a3b8]░░░░ 45%".
func progressText(progress float64, p theme.Palette, width int) string {
	if width <= 0 {
		width = barWidth
	}
	pct := math.Max(0, math.Min(100, progress))
	filled := int(math.Round(pct / 100 * float64(width)))

	return fmt.Sprintf("[%s]%s[%s]%s[-] %3.0f%%",
		p.Accent, strings.Repeat("█", filled),
		p.Muted, strings.Repeat("░", width-filled),
		pct)
}

// badgeText renders the platform tag shown next to the URL field.
func badgeText(platform domain.Platform, p theme.Palette) string {
	if !platform.Known() {
		return ""
	}
	return fmt.Sprintf("[%s::b] %s [-::-]", p.Secondary, platform.DisplayName())
}

// messageText renders the error or success line, or "" when neither is set.
func messageText(snap domain.FormSnapshot, p theme.Palette) string {
	switch {
	case snap.Error != "":
		return fmt.Sprintf("[%s]✖ %s[-]", p.Error, escape(snap.Error))
	case snap.Success != "":
		return fmt.Sprintf("[%s]✔ %s[-]", p.Success, escape(snap.Success))
	}
	return ""
}

// headerText renders the title block.
func headerText(th theme.Theme) string {
	return fmt.Sprintf("\n[%s::b]%s[-::-]\n[%s]%s[-]",
		th.Palette.Accent, escape(th.Title), th.Palette.Muted, escape(th.Tagline))
}

// submitLabel returns the button label for the loading state.
func submitLabel(th theme.Theme, loading bool) string {
	if loading {
		return th.BusyLabel
	}
	return th.SubmitLabel
}

// escape keeps user text from being read as tview colour tags.
func escape(s string) string {
	return tview.Escape(s)
}

func optionIndex[T comparable](options []T, v T) int {
	for i, o := range options {
		if o == v {
			return i
		}
	}
	return 0
}
