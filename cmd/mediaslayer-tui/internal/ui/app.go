// Package ui provides the terminal user interface for the MediaSlayer TUI.
package ui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/iconidentify/mediaslayer/cmd/mediaslayer-tui/internal/config"
	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/form"
	"github.com/iconidentify/mediaslayer/internal/theme"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	cfg    *config.Config
	theme  theme.Theme
	form   *form.Form
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	mainFlex     *tview.Flex
	submitButton *tview.Button
	header       *tview.TextView
	footer       *tview.TextView
	fields       *tview.Form
	urlInput     *tview.InputField
	badge        *tview.TextView
	progress     *tview.TextView
	message      *tview.TextView
	helpView     *tview.TextView

	showingHelp bool
}

// NewApp creates a new TUI application around a single form.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	th, err := cfg.LoadTheme()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		cfg:    cfg,
		theme:  th,
		form:   form.New(cfg.FormConfig(), th, form.WithLogger(logger)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	a.setupUI()
	return a, nil
}

// setupUI initializes all UI components.
func (a *App) setupUI() {
	bg := tcell.GetColor(a.theme.Palette.Background)
	surface := tcell.GetColor(a.theme.Palette.Surface)

	// Header
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(headerText(a.theme))
	a.header.SetBackgroundColor(bg)

	// Footer with keybindings
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Tab[white]:Next field [yellow]Enter[white]:Select [yellow]?[white]:Help [yellow]q[white]:Quit")
	a.footer.SetBackgroundColor(bg)

	a.createFormPanel(surface)
	a.createHelpPanel()

	a.pages.AddPage("form", a.formPanel(surface), true, true)
	a.pages.AddPage("help", a.helpView, true, false)

	// Main layout
	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 4, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.footer, 1, 0, false)
	a.mainFlex.SetBackgroundColor(bg)

	// Global key bindings
	a.app.SetInputCapture(a.handleGlobalKeys)

	a.app.SetRoot(a.mainFlex, true).SetFocus(a.urlInput)
}

// createFormPanel builds the URL field, selectors and submit button.
func (a *App) createFormPanel(surface tcell.Color) {
	snap := a.form.Snapshot()

	a.fields = tview.NewForm()
	a.fields.SetBorder(true).
		SetTitle(" " + a.theme.CardTitle + " ").
		SetBackgroundColor(surface)
	a.fields.SetFieldBackgroundColor(tcell.GetColor(a.theme.Palette.Background)).
		SetButtonBackgroundColor(tcell.GetColor(a.theme.Palette.Accent))

	a.urlInput = tview.NewInputField().
		SetLabel(a.theme.URLLabel + ": ").
		SetPlaceholder(a.theme.Placeholder).
		SetFieldWidth(60).
		SetChangedFunc(a.form.SetURL)
	a.fields.AddFormItem(a.urlInput)

	formats := make([]string, len(domain.Formats))
	for i, f := range domain.Formats {
		formats[i] = f.Label()
	}
	a.fields.AddDropDown("Format: ", formats, optionIndex(domain.Formats, snap.Format), func(_ string, i int) {
		if i >= 0 && i < len(domain.Formats) {
			a.form.SetFormat(domain.Formats[i])
		}
	})

	qualities := make([]string, len(domain.Qualities))
	for i, q := range domain.Qualities {
		qualities[i] = q.Label()
	}
	a.fields.AddDropDown("Quality: ", qualities, optionIndex(domain.Qualities, snap.Quality), func(_ string, i int) {
		if i >= 0 && i < len(domain.Qualities) {
			a.form.SetQuality(domain.Qualities[i])
		}
	})

	a.fields.AddButton(a.theme.SubmitLabel, a.submit)
	a.submitButton = a.fields.GetButton(a.fields.GetButtonCount() - 1)

	a.badge = tview.NewTextView().SetDynamicColors(true)
	a.badge.SetBackgroundColor(surface)

	a.progress = tview.NewTextView().SetDynamicColors(true)
	a.progress.SetBackgroundColor(surface)

	a.message = tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	a.message.SetBackgroundColor(surface)
}

// formPanel lays out the form with its status lines below it.
func (a *App) formPanel(surface tcell.Color) *tview.Flex {
	description := tview.NewTextView().
		SetDynamicColors(true).
		SetText(" [" + a.theme.Palette.Muted + "]" + escape(a.theme.CardDescription))
	description.SetBackgroundColor(surface)

	status := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(description, 1, 0, false).
		AddItem(a.badge, 1, 0, false).
		AddItem(a.progress, 1, 0, false).
		AddItem(a.message, 2, 0, false)
	status.SetBackgroundColor(surface)

	panel := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.fields, 11, 0, true).
		AddItem(status, 5, 0, false)

	// Centre horizontally
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(panel, 80, 0, true).
		AddItem(nil, 0, 1, false)
}

// handleGlobalKeys handles global keyboard shortcuts.
func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	if a.showingHelp {
		a.pages.SwitchToPage("form")
		a.showingHelp = false
		a.app.SetFocus(a.urlInput)
		return nil
	}

	// Don't intercept when typing in the URL field
	if a.app.GetFocus() == a.urlInput {
		return event
	}

	if event.Key() == tcell.KeyRune {
		switch event.Rune() {
		case '?':
			a.pages.SwitchToPage("help")
			a.showingHelp = true
			return nil
		case 'q', 'Q':
			a.Stop()
			return nil
		}
	}

	return event
}

// submit starts a session; errors are shown through the snapshot stream.
func (a *App) submit() {
	if _, err := a.form.Submit(a.ctx); err != nil && !errors.Is(err, domain.ErrInvalidURL) {
		a.logger.Debug("submit ignored", "error", err)
	}
}

// render copies a snapshot into the widgets. It must run on the UI goroutine.
func (a *App) render(snap domain.FormSnapshot) {
	p := a.theme.Palette

	a.badge.SetText(" " + badgeText(snap.Platform, p))

	if snap.IsLoading || snap.Progress > 0 {
		a.progress.SetText(" " + progressText(snap.Progress, p, barWidth))
	} else {
		a.progress.SetText("")
	}

	a.message.SetText(" " + messageText(snap, p))

	a.submitButton.SetLabel(submitLabel(a.theme, snap.IsLoading))
	a.submitButton.SetDisabled(snap.IsLoading)
}

// watch forwards form snapshots to the UI until the app stops.
func (a *App) watch() {
	subID, snaps := a.form.Subscribe()
	defer a.form.Unsubscribe(subID)

	for {
		select {
		case <-a.ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.render(snap)
			})
		}
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	go a.watch()
	return a.app.Run()
}

// Stop stops the TUI application.
func (a *App) Stop() {
	a.cancel()
	a.form.Close()
	a.app.Stop()
}
