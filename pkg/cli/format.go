// Package cli provides shared formatting helpers for the saimeta CLI.
package cli

import (
	"os"
	"strings"

	"github.com/newtron-network/saimeta/pkg/sai"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

func wrap(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + "\033[0m"
}

// Green wraps s in ANSI green.
func Green(s string) string { return wrap("\033[32m", s) }

// Yellow wraps s in ANSI yellow.
func Yellow(s string) string { return wrap("\033[33m", s) }

// Red wraps s in ANSI red.
func Red(s string) string { return wrap("\033[31m", s) }

// Bold wraps s in ANSI bold.
func Bold(s string) string { return wrap("\033[1m", s) }

// Dim wraps s in ANSI dim.
func Dim(s string) string { return wrap("\033[2m", s) }

// DotPad pads name with dots to the given width.
// Example: DotPad("SAI_OBJECT_TYPE_PORT", 30) → "SAI_OBJECT_TYPE_PORT ........."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	return name + " " + strings.Repeat(".", width-len(name)-1)
}

// Status renders a status short name: green for success, yellow for
// not executed, red otherwise.
func Status(s sai.Status) string {
	name := strings.TrimPrefix(s.String(), "SAI_STATUS_")
	switch s {
	case sai.StatusSuccess:
		return Green(name)
	case sai.StatusNotExecuted:
		return Yellow(name)
	default:
		return Red(name)
	}
}

// YesNo renders a boolean as a colored yes or no.
func YesNo(b bool) string {
	if b {
		return Green("yes")
	}
	return Red("no")
}
