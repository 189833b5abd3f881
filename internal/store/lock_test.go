package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"busy", fmt.Errorf("failed to create meeting: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain", errors.New("connection reset"), false},
		{"not found", notFound("participant", 1), false},
		{"already a conflict", fmt.Errorf("failed to save participant: %w", ErrConflict), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.conflict, errors.Is(err, ErrConflict))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, classify(nil))
}
