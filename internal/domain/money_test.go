package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Cents
	}{
		{"plain decimal", "2950.00", 295000},
		{"currency prefix with spaced thousands and comma decimal", "R 2 950,00", 295000},
		{"lowercase prefix", "r 100.50", 10050},
		{"comma thousands dot decimal", "1,234.56", 123456},
		{"dot thousands comma decimal", "2.950,00", 295000},
		{"non-breaking space thousands", "R 2 950,00", 295000},
		{"no decimals", "500", 50000},
		{"single decimal digit", "99.5", 9950},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, raw := range []string{"", "R", "abc", "12.345", "0", "0.00", "-50.00", "R -1,00"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(raw)
			require.Error(t, err)
			assert.True(t, IsErrorCode(err, ErrCodeInvalidAmount))
		})
	}
}

func TestCentsRendering(t *testing.T) {
	assert.Equal(t, "2950.00", Cents(295000).Rand())
	assert.Equal(t, "R 2950.00", Cents(295000).DisplayRand())
	assert.Equal(t, "0.05", Cents(5).Rand())
}
