package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.id, ID(tt.data))
		})
	}
}

func TestKeywordID(t *testing.T) {
	require.Equal(t, KeywordID("DATE-OBS"), KeywordID("date-obs"))
	require.Equal(t, KeywordID("CAMERA"), KeywordID(" CAMERA  "))
	require.Equal(t, ID("GAIN"), KeywordID("gain"))
	require.NotEqual(t, KeywordID("GAIN"), KeywordID("GAIN_MIN"))
}
