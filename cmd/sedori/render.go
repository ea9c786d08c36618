package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sedori/internal/alerts"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

// stateColors is the only place workflow states map to presentation.
var stateColors = map[alerts.State]text.Colors{
	alerts.StatePending:   {text.FgYellow},
	alerts.StateYay:       {text.FgGreen},
	alerts.StateNay:       {text.FgHiBlack},
	alerts.StatePurchased: {text.FgCyan},
	alerts.StateShipped:   {text.FgBlue},
	alerts.StateReceived:  {text.FgMagenta},
	alerts.StatePosted:    {text.FgHiCyan},
	alerts.StateSold:      {text.FgHiGreen, text.Bold},
}

func stateLabel(state alerts.State, colorize bool) string {
	label := titleCaser.String(string(state))
	if !colorize {
		return label
	}
	if colors, ok := stateColors[state]; ok {
		return colors.Sprint(label)
	}
	return label
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if colors := statusKindColors(kind); colors != nil {
			return colors.Sprint(base)
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColors(kind statusKind) text.Colors {
	switch kind {
	case statusOK:
		return text.Colors{text.FgGreen}
	case statusWarn:
		return text.Colors{text.FgYellow}
	case statusError:
		return text.Colors{text.FgRed}
	case statusInfo:
		return text.Colors{text.FgBlue}
	default:
		return nil
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
