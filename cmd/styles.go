package main

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500")

// palette is a simple stylesheet built with named [lipgloss.Style] fields
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
}

func newPalette(t, s, e, w string) *palette {
	return &palette{
		title: newStyle(t).Bold(true),
		ok:    newStyle(s).Bold(true),
		err:   newStyle(e).Bold(true),
		warn:  newStyle(w),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}
