package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.MrgDuplicateType, "Asm2!N.T", "duplicate type"))
	bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.AnmDuplicateResource, Subject: "Asm2!R.resources", Message: "skipped",
		Notes: []diag.Note{{Subject: "Asm1", Msg: "first defined here"}}})
	bag.Add(diag.Diagnostic{Severity: diag.SevInfo, Code: diag.PolTypeRenamed, Subject: "Asm2!N.Helper", Message: "renamed"})
	return bag
}

func TestPrettyAlignsMessages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleBag(), PrettyOpts{ShowNotes: true}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ERROR   MRG2001 Asm2!N.T"))
	assert.Equal(t, strings.Index(lines[0], "duplicate type"), strings.Index(lines[1], "skipped"))
	assert.Equal(t, "    note: Asm1: first defined here", lines[2])
}

func TestPrettyFiltersBySeverity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleBag(), PrettyOpts{MinSeverity: diag.SevWarning}))
	assert.NotContains(t, buf.String(), "POL4001")
	assert.Contains(t, buf.String(), "ANM3002")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleBag(), JSONOpts{IncludeNotes: true, Max: 2}))

	var out DiagnosticsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "MRG2001", out.Diagnostics[0].Code)
	assert.Equal(t, "Duplicate type", out.Diagnostics[0].Title)
	require.Len(t, out.Diagnostics[1].Notes, 1)
}

func TestCounts(t *testing.T) {
	assert.Equal(t, "1 error, 1 warning, 1 note", Counts(sampleBag()))
	assert.Equal(t, "0 errors, 0 warnings, 0 notes", Counts(diag.NewBag(1)))
}

func TestTableUsesDisplayWidth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []string{"NAME", "KIND"}, [][]string{
		{"Тип", "class"},
		{"Widget", "struct"},
	}))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NAME    KIND", lines[0])
	assert.Equal(t, "Тип     class", lines[1])
	assert.Equal(t, "Widget  struct", lines[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}
