package cli

import (
	"strings"
	"testing"

	"github.com/newtron-network/saimeta/pkg/sai"
)

const (
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
	reset  = "\033[0m"
)

func withColor(t *testing.T, on bool) {
	t.Helper()
	saved := colorEnabled
	colorEnabled = on
	t.Cleanup(func() { colorEnabled = saved })
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status sai.Status
		name   string
		color  string
	}{
		{sai.StatusSuccess, "SUCCESS", green},
		{sai.StatusNotExecuted, "NOT_EXECUTED", yellow},
		{sai.StatusObjectInUse, "OBJECT_IN_USE", red},
		{sai.StatusChannelIndeterminate, strings.TrimPrefix(sai.StatusChannelIndeterminate.String(), "SAI_STATUS_"), red},
		{sai.StatusInvalidEnumValue, strings.TrimPrefix(sai.StatusInvalidEnumValue.String(), "SAI_STATUS_"), red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withColor(t, false)
			if got := Status(tt.status); got != tt.name {
				t.Errorf("Status(%v) = %q, want %q", tt.status, got, tt.name)
			}

			withColor(t, true)
			if got, want := Status(tt.status), tt.color+tt.name+reset; got != want {
				t.Errorf("Status(%v) colored = %q, want %q", tt.status, got, want)
			}
		})
	}
}

func TestYesNo(t *testing.T) {
	withColor(t, true)
	if got := YesNo(true); got != green+"yes"+reset {
		t.Errorf("YesNo(true) = %q", got)
	}
	if got := YesNo(false); got != red+"no"+reset {
		t.Errorf("YesNo(false) = %q", got)
	}
}

func TestColorDisabledPassesThrough(t *testing.T) {
	withColor(t, false)
	for _, fn := range []func(string) string{Green, Yellow, Red, Bold, Dim} {
		if got := fn("oid:0x3000000000001"); got != "oid:0x3000000000001" {
			t.Errorf("colored output %q with color disabled", got)
		}
	}
}

func TestDotPad(t *testing.T) {
	// Widths match the schema check listing.
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"SAI_OBJECT_TYPE_PORT", 30, "SAI_OBJECT_TYPE_PORT " + strings.Repeat(".", 9)},
		{"SAI_OBJECT_TYPE_ROUTER_INTERFACE", 44, "SAI_OBJECT_TYPE_ROUTER_INTERFACE " + strings.Repeat(".", 11)},
		{"SAI_OBJECT_TYPE_TAM_EVENT_THRESHOLD", 36, "SAI_OBJECT_TYPE_TAM_EVENT_THRESHOLD"},
		{"SAI_OBJECT_TYPE_ISOLATION_GROUP_MEMBER", 20, "SAI_OBJECT_TYPE_ISOLATION_GROUP_MEMBER"},
		{"", 3, " .."},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		got := DotPad(tt.input, tt.width)
		if got != tt.want {
			t.Errorf("DotPad(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
		if len(tt.input) < tt.width-1 && len(got) != tt.width {
			t.Errorf("DotPad(%q, %d) length = %d, want %d", tt.input, tt.width, len(got), tt.width)
		}
	}
}
