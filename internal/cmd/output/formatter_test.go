package output

import (
	"bytes"
	"strings"
	"testing"
)

type frameRow struct {
	ID         string  `json:"id" yaml:"id"`
	PixelScale float64 `json:"pixel_scale" yaml:"pixel_scale"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"csv", FormatCSV, false},
		{"", Format(""), false},
		{"xml", Format(""), true},
	}
	for _, tc := range tests {
		got, err := ParseFormat(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).Format(&buf, frameRow{ID: "f1", PixelScale: 0.04}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), `"pixel_scale": 0.04`) {
		t.Errorf("unexpected JSON output:\n%s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatYAML).Format(&buf, frameRow{ID: "f1", PixelScale: 0.04}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "id: f1") || !strings.Contains(out, "pixel_scale: 0.04") {
		t.Errorf("unexpected YAML output:\n%s", out)
	}
}

func TestCSVFormatter(t *testing.T) {
	data := Data{
		Headers: []string{"id", "scale"},
		Rows:    [][]string{{"f1", "0.04"}, {"f2", "0.05"}},
	}

	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).Format(&buf, data); err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "id,scale\nf1,0.04\nf2,0.05\n"
	if buf.String() != want {
		t.Errorf("CSV output = %q, want %q", buf.String(), want)
	}
}

func TestCSVFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).Format(&buf, map[string]int{"frames": 2}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), `"frames": 2`) {
		t.Errorf("unexpected fallback output:\n%s", buf.String())
	}
}

func TestTableFormatter(t *testing.T) {
	data := Data{
		Headers:         []string{"Frame", "Baseline"},
		Rows:            [][]string{{"f1", "10.00"}},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}

	var buf bytes.Buffer
	if err := NewFormatter(FormatTable).Format(&buf, data); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"FRAME", "f1", "10.00"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestSliceData(t *testing.T) {
	rows := []frameRow{{ID: "f1", PixelScale: 0.04}, {ID: "f2", PixelScale: 0.05}}

	data := SliceData(rows)
	if data == nil {
		t.Fatal("SliceData returned nil for a struct slice")
	}
	if data.Headers[0] != "Id" || data.Headers[1] != "Pixel Scale" {
		t.Errorf("headers = %v", data.Headers)
	}
	if len(data.Rows) != 2 || data.Rows[0][0] != "f1" || data.Rows[1][1] != "0.05" {
		t.Errorf("rows = %v", data.Rows)
	}

	if SliceData([]int{1, 2}) != nil {
		t.Error("expected nil for a non-struct slice")
	}
	if SliceData("nope") != nil {
		t.Error("expected nil for a non-slice")
	}
}

func TestStructData(t *testing.T) {
	data := StructData(&frameRow{ID: "f1", PixelScale: 0.04})
	if data == nil {
		t.Fatal("StructData returned nil for a struct pointer")
	}
	if data.Headers[0] != "Property" || data.Headers[1] != "Value" {
		t.Errorf("headers = %v", data.Headers)
	}
	if data.Rows[0][0] != "Id" || data.Rows[0][1] != "f1" {
		t.Errorf("rows = %v", data.Rows)
	}

	if StructData(42) != nil {
		t.Error("expected nil for a non-struct")
	}
}
