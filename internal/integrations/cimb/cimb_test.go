package cimb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceAfterAccount(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		want    string
		wantErr string
	}{
		{
			name:  "balance follows account",
			texts: []string{"Home", "Savings 7013252356", " 2,000.00 ", "Details"},
			want:  "2,000.00",
		},
		{
			name:  "first matching account wins",
			texts: []string{"7013252356", "1.00", "7013252356", "2.00"},
			want:  "1.00",
		},
		{
			name:    "account is last link",
			texts:   []string{"Home", "7013252356"},
			wantErr: "no balance link after account 7013252356",
		},
		{
			name:    "account missing",
			texts:   []string{"Home", "1111111111", "5.00"},
			wantErr: "could not find account 7013252356",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := balanceAfterAccount(tt.texts, "7013252356")
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInFrame(t *testing.T) {
	js := inFrame(mainFrame, anchorTextsJS)
	assert.Contains(t, js, `window.frames["mainFrame"]`)
	assert.Contains(t, js, anchorTextsJS)

	top := inFrame("", clickLogoutJS)
	assert.Contains(t, top, "const doc = document;")
	assert.NotContains(t, top, "window.frames")
}
