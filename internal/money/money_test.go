package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "10.00", want: 1000},
		{in: "0.30", want: 30},
		{in: "3", want: 300},
		{in: "2.99", want: 299},
		{in: "0.02", want: 2},
		{in: "2.999", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-5.00", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "9.20", FormatCents(920))
	assert.Equal(t, "0.30", FormatCents(30))
	assert.Equal(t, "10.00", FormatCents(1000))
	assert.Equal(t, "0.00", FormatCents(0))
}
