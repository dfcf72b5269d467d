package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Correcto#2026x")
	require.NoError(t, err)
	assert.NotEqual(t, "Correcto#2026x", hash)
	assert.True(t, CheckPassword("Correcto#2026x", hash))
	assert.False(t, CheckPassword("Incorrecto#2026", hash))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  string
	}{
		{"Correcto#2026x", ""},
		{"Corto#1", "at least 12"},
		{"sinmayusculas#2026", "uppercase"},
		{"SINMINUSCULAS#2026", "lowercase"},
		{"SinNumeros#abcd", "number"},
		{"SinSimbolos2026x", "special"},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
