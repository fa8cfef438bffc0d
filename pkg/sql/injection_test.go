package sql

import (
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		injection bool
	}{
		{"business name", "Warung Bu Sari", false},
		{"search term", "laptop computers", false},
		{"apostrophe", "O'Brien", false},
		{"double dash in text", "This is a note -- with dashes", false},
		{"integer", 100, false},
		{"float", 99.95, false},
		{"nil", nil, false},
		{"empty", "", false},
		{"tautology", "' OR '1'='1", true},
		{"drop table", "'; DROP TABLE users--", true},
		{"union select", "1 UNION SELECT * FROM passwords", true},
		{"comment out", "admin'--", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Check("q", tt.value)
			if tt.injection {
				if f == nil {
					t.Fatalf("expected %q to be flagged", tt.value)
				}
				if f.Field != "q" {
					t.Errorf("expected Field=q, got %q", f.Field)
				}
				if f.Fingerprint == "" {
					t.Errorf("expected a fingerprint")
				}
				return
			}
			if f != nil {
				t.Errorf("expected %v to pass, got fingerprint %s", tt.value, f.Fingerprint)
			}
		})
	}
}

func TestScreen(t *testing.T) {
	clean := map[string]any{"business_name": "Toko Makmur", "phone": "+1-555-123-4567", "sort_order": 3}
	if f := Screen(clean); f != nil {
		t.Fatalf("expected clean values to pass, got %v", f)
	}

	dirty := map[string]any{
		"owner_name":    "admin'--",
		"business_name": "' OR '1'='1",
	}
	f := Screen(dirty)
	if f == nil {
		t.Fatal("expected a finding")
	}
	if f.Field != "business_name" {
		t.Errorf("expected first field in name order, got %q", f.Field)
	}
}
