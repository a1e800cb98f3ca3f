// Package render draws a form session on a plain terminal, either as a live
// progress bar or as log lines when output is not a TTY.
package render

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

// Renderer receives every snapshot of one session.
type Renderer interface {
	Update(snap domain.FormSnapshot)
	Finish(snap domain.FormSnapshot)
}

// Styles holds the lipgloss styles derived from a theme palette.
type Styles struct {
	Title   lipgloss.Style
	Tagline lipgloss.Style
	Badge   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles builds styles for th.
func NewStyles(th theme.Theme) Styles {
	p := th.Palette
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Accent)),
		Tagline: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Badge: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color(p.Secondary)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Success)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
	}
}

// Header renders the theme title and tagline.
func (s Styles) Header(th theme.Theme) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(th.Title),
		s.Tagline.Render(th.Tagline),
	)
}

// Target renders the platform tag followed by the URL, format and quality.
func (s Styles) Target(snap domain.FormSnapshot) string {
	line := s.Muted.Render(fmt.Sprintf("%s  %s  %s", snap.URL, snap.Format.Label(), snap.Quality.Label()))
	if !snap.Platform.Known() {
		return line
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, s.Badge.Render(snap.Platform.DisplayName()), " ", line)
}

// Message renders the error or success line, or "" when neither is set.
func (s Styles) Message(snap domain.FormSnapshot) string {
	switch {
	case snap.Error != "":
		return s.Error.Render("✖ " + snap.Error)
	case snap.Success != "":
		return s.Success.Render("✔ " + snap.Success)
	}
	return ""
}

// Bar draws progress with a single redrawn progressbar line.
type Bar struct {
	bar *progressbar.ProgressBar
	w   io.Writer
}

// NewBar creates a Bar writing to w, labelled with the theme's busy text.
func NewBar(w io.Writer, th theme.Theme) *Bar {
	return &Bar{
		w: w,
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(th.BusyLabel),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "|",
				BarEnd:        "|",
			}),
		),
	}
}

// Update moves the bar to the snapshot's progress.
func (b *Bar) Update(snap domain.FormSnapshot) {
	if !snap.IsLoading {
		return
	}
	b.bar.Set(percent(snap.Progress))
}

// Finish draws the final position and ends the line.
func (b *Bar) Finish(snap domain.FormSnapshot) {
	if snap.Error == "" {
		b.bar.Set(percent(snap.Progress))
	}
	b.bar.Exit()
	fmt.Fprintln(b.w)
}

// Lines prints one line each time the whole percentage changes.
type Lines struct {
	w     io.Writer
	label string
	last  int
}

// NewLines creates a Lines renderer writing to w.
func NewLines(w io.Writer, th theme.Theme) *Lines {
	return &Lines{w: w, label: th.BusyLabel, last: -1}
}

// Update prints the progress if it moved.
func (l *Lines) Update(snap domain.FormSnapshot) {
	if !snap.IsLoading {
		return
	}
	l.print(percent(snap.Progress))
}

// Finish prints the final progress.
func (l *Lines) Finish(snap domain.FormSnapshot) {
	if snap.Error != "" {
		return
	}
	l.print(percent(snap.Progress))
}

func (l *Lines) print(pct int) {
	if pct == l.last {
		return
	}
	l.last = pct
	fmt.Fprintf(l.w, "%s %3d%%\n", l.label, pct)
}

// Follow feeds snapshots to r until a final snapshot arrives on done, the
// snapshot channel closes, or ctx ends. It returns the final snapshot.
func Follow(ctx context.Context, snaps <-chan domain.FormSnapshot, done <-chan domain.FormSnapshot, r Renderer) (domain.FormSnapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return domain.FormSnapshot{}, ctx.Err()

		case final := <-done:
			drain(snaps, r)
			r.Finish(final)
			return final, nil

		case snap, ok := <-snaps:
			if !ok {
				return domain.FormSnapshot{}, domain.ErrFormClosed
			}
			r.Update(snap)
		}
	}
}

// drain renders snapshots that were queued before the final one.
func drain(snaps <-chan domain.FormSnapshot, r Renderer) {
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			r.Update(snap)
		default:
			return
		}
	}
}

func percent(progress float64) int {
	return int(math.Round(math.Max(0, math.Min(100, progress))))
}
