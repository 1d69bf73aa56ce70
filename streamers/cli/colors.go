package cli

import (
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	successColor  = color.New(color.FgGreen)
	failureColor  = color.New(color.FgRed, color.Bold)
	toolColor     = color.New(color.Bold)
	subtleColor   = color.New(color.FgHiBlack)
	userColor     = color.New(color.FgYellow)
	responseLabel = color.New(color.FgGreen, color.Bold)
)

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
