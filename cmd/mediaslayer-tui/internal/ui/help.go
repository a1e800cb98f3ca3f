package ui

import (
	"github.com/rivo/tview"
)

// createHelpPanel creates the help panel.
func (a *App) createHelpPanel() {
	a.helpView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.helpView.SetBorder(true).SetTitle(" Help ")

	helpText := `[yellow::b]` + escape(a.theme.Title) + ` - Terminal Downloader[white]

Paste a YouTube or X (Twitter) link, pick a format and quality, and start
the download. The platform badge under the form updates as you type.

[yellow::b]NAVIGATION[white]
[cyan]Tab[white] / [cyan]Shift+Tab[white]   Move between fields
[cyan]Enter[white]             Open a dropdown or press the button
[cyan]?[white]                 Help           - This help screen
[cyan]q[white]                 Quit           - Exit (outside the URL field)
[cyan]Ctrl+C[white]            Quit           - Exit from anywhere

[yellow::b]SUPPORTED LINKS[white]
- youtube.com, youtu.be
- twitter.com, x.com

[yellow::b]ENVIRONMENT VARIABLES[white]
[cyan]MEDIASLAYER_THEME[white]           Theme name (default: quest)
[cyan]MEDIASLAYER_THEME_FILE[white]      YAML theme override file
[cyan]MEDIASLAYER_TICK_INTERVAL[white]   Progress tick interval (default: 200ms)
[cyan]MEDIASLAYER_MAX_INCREMENT[white]   Largest progress step (default: 15)
[cyan]MEDIASLAYER_COMPLETE_AFTER[white]  Download duration (default: 3s)
[cyan]MEDIASLAYER_RESET_AFTER[white]     Delay before the form clears (default: 3s)
[cyan]MEDIASLAYER_LOG_FILE[white]        Write debug logs to this file

[dim]Press any key to return to the form[white]
`

	a.helpView.SetText(helpText)
}
