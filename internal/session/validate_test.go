package session

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"main", false},
		{"beach-2025", false},
		{"owner_desk", false},
		{"7", false},
		{strings.Repeat("a", MaxNameLen), false},
		{"", true},
		{strings.Repeat("a", MaxNameLen+1), true},
		{"-main", true},
		{"_main", true},
		{"Main", true},
		{"palm bay", true},
		{"../etc", true},
		{"a/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
