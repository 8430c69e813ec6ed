package database

import (
	"database/sql"
	"errors"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "SELECT 1", "SELECT 1"},
		{"single", "SELECT * FROM sessions WHERE id = ?", "SELECT * FROM sessions WHERE id = $1"},
		{"multiple", "INSERT INTO t (a, b, c) VALUES (?, ?, ?)", "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"},
		{"mixed", "UPDATE t SET a = ? WHERE b = ? AND c = 'x?'", "UPDATE t SET a = $1 WHERE b = $2 AND c = 'x$3'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rebind(tt.in); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDBErrTagging(t *testing.T) {
	driverErr := errors.New("connection refused")
	tagged := dbErr(driverErr)
	if !errors.Is(tagged, ErrUnavailable) {
		t.Error("driver errors should be tagged unavailable")
	}
	if !errors.Is(tagged, driverErr) {
		t.Error("the original error should stay reachable through the tag")
	}

	if dbErr(nil) != nil {
		t.Error("nil should pass through")
	}
	if err := dbErr(ErrNotFound); !errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		t.Errorf("ErrNotFound should pass through untagged, got %v", err)
	}
	if err := dbErr(sql.ErrNoRows); errors.Is(err, ErrUnavailable) {
		t.Errorf("sql.ErrNoRows should pass through untagged, got %v", err)
	}
}
