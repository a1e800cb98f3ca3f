package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/theme"
	"github.com/iconidentify/mediaslayer/pkg/ui"
)

// UIHandler serves the web UI.
type UIHandler struct {
	themes *theme.Set
	logger *slog.Logger
}

// NewUIHandler creates a new UI handler.
func NewUIHandler(themes *theme.Set, logger *slog.Logger) *UIHandler {
	return &UIHandler{
		themes: themes,
		logger: logger,
	}
}

// Index serves the form page. ?theme= selects a skin other than the default.
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	th, err := h.themes.Get(r.URL.Query().Get("theme"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUnknownTheme) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if err := ui.RenderForm(&buf, pageData(th, h.themes.Names())); err != nil {
		h.logger.Error("failed to render form page", "theme", th.Name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func pageData(th theme.Theme, names []string) ui.PageData {
	data := ui.PageData{
		Theme: ui.ThemeData{
			Name:            th.Name,
			Title:           th.Title,
			Tagline:         th.Tagline,
			CardTitle:       th.CardTitle,
			CardDescription: th.CardDescription,
			URLLabel:        th.URLLabel,
			Placeholder:     th.Placeholder,
			SubmitLabel:     th.SubmitLabel,
			BusyLabel:       th.BusyLabel,
			Palette: ui.PaletteData{
				Background: th.Palette.Background,
				Surface:    th.Palette.Surface,
				Text:       th.Palette.Text,
				Muted:      th.Palette.Muted,
				Accent:     th.Palette.Accent,
				Secondary:  th.Palette.Secondary,
				Error:      th.Palette.Error,
				Success:    th.Palette.Success,
			},
		},
		Themes: names,
	}

	for _, f := range domain.Formats {
		data.Formats = append(data.Formats, ui.Option{
			Value:    string(f),
			Label:    f.Label(),
			Selected: f == domain.DefaultFormat,
		})
	}
	for _, q := range domain.Qualities {
		data.Qualities = append(data.Qualities, ui.Option{
			Value:    string(q),
			Label:    q.Label(),
			Selected: q == domain.DefaultQuality,
		})
	}
	return data
}
