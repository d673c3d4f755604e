package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	id, err := NewULID()
	require.NoError(t, err)
	assert.Len(t, id, 26)
	assert.NoError(t, ValidateULID(id))

	other, err := NewULID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestValidateULID(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"generated", MustNewULID(), true},
		{"lowercase", strings.ToLower(MustNewULID()), true},
		{"empty", "", false},
		{"too short", "01J5XW3V9GQZJ4M8R2T6B7C8", false},
		{"excluded letters", "01J5XW3V9GQZJ4M8R2T6B7C8IL", false},
		{"not base32", "zzzzzzzzzzzzzzzzzzzzzzzzz!", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateULID(tc.value)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidULID)
			}
		})
	}
}
