package main

import "fmt"

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusError: {"FAIL", "\x1b[31m"},
}

// renderStatusLine prints "  Label:   [OK] detail" with the label padded
// to a fixed column.
func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	style := statusStyles[kind]
	line := fmt.Sprintf("  %-18s [%s]", label+":", style.label)
	if detail != "" {
		line += " " + detail
	}
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) string {
	if colorize {
		return statusStyles[statusInfo].color + title + ansiReset
	}
	return title
}
