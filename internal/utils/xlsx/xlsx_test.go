package xlsx

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWorkbook = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets><sheet name="Report" sheetId="1" r:id="rId3"/></sheets>
</workbook>`
	testRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/report.xml"/>
</Relationships>`
	testSharedStrings = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">
  <si><t>Total</t></si>
  <si><r><t>1,2</t></r><r><t>34.50</t></r></si>
</sst>`
	testSheet = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="14"><c r="A14" t="s"><v>0</v></c><c r="B14" t="s"><v>1</v></c></row>
    <row r="15"><c r="A15" t="inlineStr"><is><t>Balance</t></is></c><c r="B15"><v>98765.43</v></c></row>
    <row r="16"><c r="B16"/></row>
  </sheetData>
</worksheet>`
)

func writeWorkbook(t *testing.T, parts map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "report.xlsx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestReadCell(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		workbookPart:               testWorkbook,
		workbookRelsPart:           testRels,
		sharedStringsPart:          testSharedStrings,
		"xl/worksheets/report.xml": testSheet,
	})

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{name: "numeric cell", ref: "B15", want: "98765.43"},
		{name: "lower case reference", ref: "b15", want: "98765.43"},
		{name: "shared string", ref: "A14", want: "Total"},
		{name: "rich shared string", ref: "B14", want: "1,234.50"},
		{name: "inline string", ref: "A15", want: "Balance"},
		{name: "empty cell", ref: "B16", wantErr: ErrCellNotFound},
		{name: "missing cell", ref: "C99", wantErr: ErrCellNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCell(path, tt.ref)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCell_DefaultSheetWithoutRels(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		workbookPart:     `<workbook><sheets><sheet name="S" sheetId="1"/></sheets></workbook>`,
		defaultSheetPart: testSheet,
	})

	got, err := ReadCell(path, "B15")
	require.NoError(t, err)
	assert.Equal(t, "98765.43", got)
}

func TestReadCell_Corrupt(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(p, []byte("not a zip archive"), 0o600))

	_, err := ReadCell(p, "B15")
	assert.Error(t, err)

	notWorkbook := writeWorkbook(t, map[string]string{"hello.txt": "hi"})
	_, err = ReadCell(notWorkbook, "B15")
	assert.Error(t, err)
}
