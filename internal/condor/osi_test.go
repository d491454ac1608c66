package condor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

func TestParseOSI(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		root    string
		expiry  string
		right   domain.OptionRight
		millis  int
		wantErr bool
	}{
		{
			name:   "canonical padded",
			input:  "SPXW  241115P05895000",
			root:   "SPXW",
			expiry: "241115",
			right:  domain.RightPut,
			millis: 5895000,
		},
		{
			name:   "short form",
			input:  "SPXW241115C5900",
			root:   "SPXW",
			expiry: "241115",
			right:  domain.RightCall,
			millis: 5900000,
		},
		{
			name:   "dotted with fractional strike",
			input:  ".SPXW241115P5895.5",
			root:   "SPXW",
			expiry: "241115",
			right:  domain.RightPut,
			millis: 5895500,
		},
		{
			name:   "underscore separated",
			input:  "SPXW_241115P05895000",
			root:   "SPXW",
			expiry: "241115",
			right:  domain.RightPut,
			millis: 5895000,
		},
		{
			name:   "lowercase trimmed",
			input:  "  spxw241115c5900  ",
			root:   "SPXW",
			expiry: "241115",
			right:  domain.RightCall,
			millis: 5900000,
		},
		{
			name:    "garbage",
			input:   "not-a-symbol",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := ParseOSI(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.root, o.Root)
			assert.Equal(t, tt.expiry, o.Expiry)
			assert.Equal(t, tt.right, o.Right)
			assert.Equal(t, tt.millis, o.Millis)
		})
	}
}

func TestOSIRoundTrip(t *testing.T) {
	o, err := ParseOSI("SPXW241115P5895")
	require.NoError(t, err)
	canonical := o.String()
	assert.Equal(t, "SPXW  241115P05895000", canonical)

	again, err := ParseOSI(canonical)
	require.NoError(t, err)
	assert.Equal(t, o, again)
}

func TestCanonIgnoresRoot(t *testing.T) {
	a, err := Canon("SPX   241115P05895000")
	require.NoError(t, err)
	b, err := Canon("SPXW241115P5895")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Canon("SPXW241115C5895")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFromParts(t *testing.T) {
	o := FromParts("SPXW", "241115", domain.RightCall, 5900)
	assert.Equal(t, "SPXW  241115C05900000", o.String())
	assert.Equal(t, 5900.0, o.Strike())
}
