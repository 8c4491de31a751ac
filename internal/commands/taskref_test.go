package commands

import (
	"errors"
	"testing"
)

func TestParseTaskNum(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"simple", []string{"1"}, 1, false},
		{"larger", []string{"42"}, 42, false},
		{"no args", nil, 0, true},
		{"zero", []string{"0"}, 0, true},
		{"negative", []string{"-1"}, 0, true},
		{"word", []string{"first"}, 0, true},
		{"mixed", []string{"1a"}, 0, true},
		{"empty", []string{""}, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTaskNum(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for %v", tc.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestParseTaskNumMissingRef(t *testing.T) {
	_, err := ParseTaskNum(nil)
	if !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}
