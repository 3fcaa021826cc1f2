package model

import (
	"encoding/json"
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"10/01/2025 08:30:00", true},
		{"  10/01/2025 08:30:00  ", true},
		{"", false},
		{"   ", false},
		{"2025-01-10 08:30:00", false},
		{"10/01/2025", false},
		{"32/01/2025 08:30:00", false},
	}
	for _, tc := range cases {
		ts, ok := ParseTimestamp(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseTimestamp(%q) ok=%v want %v", tc.in, ok, tc.ok)
		}
		if ok && (ts.Day() != 10 || ts.Month() != 1 || ts.Year() != 2025) {
			t.Errorf("ParseTimestamp(%q)=%v, day/month swapped?", tc.in, ts)
		}
	}
}

func TestTripRecord_DecodesUpstreamPayload(t *testing.T) {
	raw := `{
		"idLinhaEsperada": 77,
		"idLinha": 770,
		"dataInicioPrevisto": "10/01/2025 08:00:00",
		"dataInicioRealizado": "10/01/2025 08:05:00",
		"nomeMotorista": "João",
		"prefixoPrevisto": "AB-1234",
		"sentido": "ida",
		"nomeSetor": "Leste"
	}`

	var rec TripRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ExpectedLineID != 77 || rec.ActualLineID != 770 {
		t.Fatalf("line ids: %+v", rec)
	}
	if rec.Driver != "João" || rec.ScheduledVehicle != "AB-1234" {
		t.Fatalf("fields: %+v", rec)
	}
}
