package common

import "github.com/olekukonko/ts"

var TerminalWidth int

func init() {
	if size, err := ts.GetSize(); err == nil {
		TerminalWidth = size.Col()
	}
	if TerminalWidth <= 0 {
		TerminalWidth = 100
	}
}
