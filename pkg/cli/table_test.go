package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "TYPE", "COUNT")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table printed %q", buf.String())
	}
	if tbl.Rows() != 0 {
		t.Errorf("Rows() = %d, want 0", tbl.Rows())
	}
}

func TestTable_Rows(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "TYPE", "COUNT")
	tbl.Row("SAI_OBJECT_TYPE_PORT", "5")
	tbl.Row("SAI_OBJECT_TYPE_QUEUE", "10")
	tbl.Flush()

	want := strings.Join([]string{
		"TYPE                   COUNT",
		"----                   -----",
		"SAI_OBJECT_TYPE_PORT   5",
		"SAI_OBJECT_TYPE_QUEUE  10",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("table output:\n%s\nwant:\n%s", buf.String(), want)
	}
	if tbl.Rows() != 2 {
		t.Errorf("Rows() = %d, want 2", tbl.Rows())
	}
}

func TestTable_Prefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "KEY").WithPrefix("  ")
	tbl.Row("oid:0x1")
	tbl.Flush()

	for i, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %d %q is not indented", i, line)
		}
	}
}
