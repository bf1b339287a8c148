package util

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

type fakeSwitch string

func (s fakeSwitch) String() string { return string(s) }

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()

	WithObject("SAI_OBJECT_TYPE_PORT", "oid:0x1000000000001").Info("created")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec["object_type"] != "SAI_OBJECT_TYPE_PORT" {
		t.Errorf("object_type = %v, want SAI_OBJECT_TYPE_PORT", rec["object_type"])
	}
	if rec["key"] != "oid:0x1000000000001" {
		t.Errorf("key = %v, want oid:0x1000000000001", rec["key"])
	}
}

func TestWithSwitch(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	WithSwitch(fakeSwitch("oid:0x21000000000000")).Warn("snooped")

	if got := buf.String(); !strings.Contains(got, "switch=") || !strings.Contains(got, "oid:0x21000000000000") {
		t.Errorf("missing switch field in %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel("warn")

	Logger.Debugf("debug %d", 1)
	Infof("info %d", 2)
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	Warnf("warn %d", 3)
	Logger.Errorf("error %d", 4)
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("line count = %d, want 2", got)
	}
}

func TestWithOperation(t *testing.T) {
	entry := WithOperation("create").WithField("status", "SAI_STATUS_SUCCESS")
	if entry.Data["operation"] != "create" {
		t.Errorf("operation = %v, want create", entry.Data["operation"])
	}
	if entry := WithField("b", 2); entry.Data["b"] != 2 {
		t.Errorf("WithField lost field b")
	}
}
