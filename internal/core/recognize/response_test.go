package recognize

import (
	"testing"

	"github.com/hwelland/qcflow/internal/core/domain"
)

func TestParseResponseSuccess(t *testing.T) {
	payload := []byte(`{
		"results": [
			{"text": "Bent bracket", "confidence": 0.92},
			{"text": "Critical weld crack", "confidence": 0.88,
			 "is_table": false, "location": "frame"}
		]
	}`)

	frags, err := ParseResponse(payload)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("len = %d, want 2", len(frags))
	}
	if frags[0].Text != "Bent bracket" || frags[1].Location != "frame" {
		t.Errorf("fragments = %+v", frags)
	}
}

func TestParseResponseEmptyResults(t *testing.T) {
	frags, err := ParseResponse([]byte(`{"results": []}`))
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if len(frags) != 0 {
		t.Fatalf("len = %d, want 0", len(frags))
	}
}

func TestParseResponseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty body", ""},
		{"whitespace", "   \n"},
		{"not json", "<html>backend is down</html>"},
		{"missing results", `{"analytics": {}}`},
		{"results not array", `{"results": {"text": "x"}}`},
		{"fragment without text", `{"results": [{"confidence": 0.5}]}`},
		{"confidence out of range", `{"results": [{"text": "x", "confidence": 1.7}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse([]byte(tt.payload))
			if !domain.IsKind(err, domain.ErrMalformedResponse) {
				t.Errorf("error = %v, want ErrMalformedResponse kind", err)
			}
		})
	}
}

func TestParseResponseTableCells(t *testing.T) {
	payload := []byte(`{
		"results": [{
			"text": "defect table",
			"is_table": true,
			"table_cells": [
				{"row_index": 0, "column_index": 0, "text": "Scratch", "confidence": 0.9},
				{"row_index": 0, "column_index": 1, "text": "Door", "confidence": 0.8}
			]
		}]
	}`)

	frags, err := ParseResponse(payload)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if !frags[0].IsTable || len(frags[0].TableCells) != 2 {
		t.Fatalf("table fragment = %+v", frags[0])
	}
	if frags[0].TableCells[1].ColumnIndex != 1 || frags[0].TableCells[1].Text != "Door" {
		t.Errorf("cell = %+v", frags[0].TableCells[1])
	}
}
