package fits

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fitsimg/errs"
)

func encodeCard(t *testing.T, keyword string, value any, comment string) string {
	t.Helper()

	card, err := NewCard(keyword, value, comment)
	require.NoError(t, err)

	raw, err := card.AppendTo(nil)
	require.NoError(t, err)
	require.Zero(t, len(raw)%CardSize)

	return string(raw)
}

func TestCard_FixedFormat(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		value   any
		comment string
		want    string
	}{
		{"logical", "SIMPLE", true, "", "SIMPLE  =                    T"},
		{"false", "EXTEND", false, "", "EXTEND  =                    F"},
		{"integer", "NAXIS", 2, "", "NAXIS   =                    2"},
		{"negative", "BITPIX", -32, "", "BITPIX  =                  -32"},
		{"unsigned", "XBINNING", uint16(4), "", "XBINNING=                    4"},
		{"float", "EXPTIME", 1.5, "", "EXPTIME =                  1.5"},
		{"integral float", "CCD-TEMP", -10.0, "", "CCD-TEMP=                -10.0"},
		{"float32", "XPIXSZ", float32(3.76), "", "XPIXSZ  =                 3.76"},
		{"string padded", "EXTNAME", "IMAGE", "", "EXTNAME = 'IMAGE   '"},
		{"quote", "OBSERVER", "O'Brien", "", "OBSERVER= 'O''Brien'"},
		{"comment", "NAXIS", 0, "number of data axes", "NAXIS   =                    0 / number of data axes"},
		{"lower case", "camera", "cam1", "", "CAMERA  = 'cam1    '"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeCard(t, tt.keyword, tt.value, tt.comment)
			require.Len(t, got, CardSize)
			require.Equal(t, tt.want, strings.TrimRight(got, " "))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		1.5:     "1.5",
		2:       "2.0",
		0:       "0.0",
		-0.25:   "-0.25",
		1e21:    "1.0E+21",
		1.5e-7:  "1.5E-07",
		123.456: "123.456",
	}

	for f, want := range tests {
		require.Equal(t, want, FormatFloat(f))
	}
}

func TestCard_Undefined(t *testing.T) {
	for _, v := range []any{math.NaN(), math.Inf(1), float32(math.Inf(-1)), nil} {
		card, err := NewCard("CCD-TEMP", v, "")
		require.NoError(t, err)
		require.Equal(t, Undefined, card.Value)

		raw, err := card.AppendTo(nil)
		require.NoError(t, err)
		require.Equal(t, "CCD-TEMP= ", strings.TrimRight(string(raw), " ")+" ")

		parsed, err := parseCard(raw)
		require.NoError(t, err)
		require.Equal(t, Undefined, parsed.Value)
	}
}

func TestCard_Hierarch(t *testing.T) {
	got := encodeCard(t, "COMPRESSED_IMAGE", "T", "")
	require.Equal(t, "HIERARCH COMPRESSED_IMAGE = 'T'", strings.TrimRight(got, " "))

	got = encodeCard(t, "compression_algo", "gzip", "")
	require.Equal(t, "HIERARCH COMPRESSION_ALGO = 'gzip'", strings.TrimRight(got, " "))

	got = encodeCard(t, "HIERARCH ESO DET GAIN", 2, "")
	require.Equal(t, "HIERARCH ESO DET GAIN = 2", strings.TrimRight(got, " "))

	card, err := parseCard([]byte(got))
	require.NoError(t, err)
	require.Equal(t, "ESO DET GAIN", card.Keyword)
	require.Equal(t, int64(2), card.Value)
}

func TestCard_LongString(t *testing.T) {
	long := strings.Repeat("abcdefghij", 20) + "'end'"

	card, err := NewCard("NOTES", long, "free text")
	require.NoError(t, err)

	raw, err := card.AppendTo(nil)
	require.NoError(t, err)
	require.Greater(t, len(raw), CardSize)
	require.Zero(t, len(raw)%CardSize)
	require.Equal(t, continuePrefix, string(raw[CardSize:CardSize+len(continuePrefix)]))

	hdr := NewHeader()
	require.NoError(t, hdr.Set("NOTES", long, "free text"))
	require.NoError(t, hdr.Set("NAXIS", 0, ""))

	data, err := hdr.Bytes()
	require.NoError(t, err)

	parsed, err := ReadHeader(strings.NewReader(string(data)))
	require.NoError(t, err)

	got, ok := parsed.String("NOTES")
	require.True(t, ok)
	require.Equal(t, long, got)
	require.Equal(t, "free text", mustGet(t, parsed, "NOTES").Comment)

	n, ok := parsed.Int("NAXIS")
	require.True(t, ok)
	require.Zero(t, n)
}

func TestCard_Commentary(t *testing.T) {
	text := strings.Repeat("x", 100)

	got := encodeCard(t, "COMMENT", text, "")
	require.Len(t, got, 2*CardSize)
	require.Equal(t, "COMMENT "+strings.Repeat("x", 72), got[:CardSize])

	card, err := parseCard([]byte(got[:CardSize]))
	require.NoError(t, err)
	require.True(t, card.IsCommentary())
	require.Equal(t, strings.Repeat("x", 72), card.Comment)
}

func TestCard_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		value   any
		err     error
	}{
		{"blank keyword with number", "", 1, errs.ErrInvalidValue},
		{"equals sign", "A=B", 1, errs.ErrInvalidKeyword},
		{"reserved", "END", 1, errs.ErrInvalidKeyword},
		{"non ascii keyword", "TEMPÉ", 1, errs.ErrInvalidKeyword},
		{"non ascii value", "CAMERA", "caméra", errs.ErrInvalidValue},
		{"control character", "CAMERA", "a\nb", errs.ErrInvalidValue},
		{"unsupported type", "CAMERA", struct{}{}, errs.ErrInvalidValue},
		{"commentary with number", "HISTORY", 3, errs.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCard(tt.keyword, tt.value, "")
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCard_Empty(t *testing.T) {
	_, err := NewCard("", "", "")
	require.NoError(t, err, "blank keyword is a commentary card")
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		line    string
		keyword string
		value   any
		comment string
	}{
		{"SIMPLE  =                    T / conforms", "SIMPLE", true, "conforms"},
		{"BITPIX  =                  -32", "BITPIX", int64(-32), ""},
		{"BZERO   =                32768", "BZERO", int64(32768), ""},
		{"EXPTIME =               1.5D-3", "EXPTIME", 1.5e-3, ""},
		{"BIG     = 18446744073709551615", "BIG", uint64(math.MaxUint64), ""},
		{"EXTNAME = 'IMAGE   '           / name", "EXTNAME", "IMAGE", "name"},
		{"OBSERVER= '  O''Brien / x'", "OBSERVER", "  O'Brien / x", ""},
		{"CPLX    = (1.0, 2.0)", "CPLX", "(1.0, 2.0)", ""},
		{"HISTORY created", "HISTORY", nil, "created"},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			rec := []byte(tt.line + strings.Repeat(" ", CardSize-len(tt.line)))

			card, err := parseCard(rec)
			require.NoError(t, err)
			require.Equal(t, tt.keyword, card.Keyword)
			require.Equal(t, tt.value, card.Value)
			require.Equal(t, tt.comment, card.Comment)
		})
	}

	_, err := parseCard([]byte("SHORT"))
	require.ErrorIs(t, err, errs.ErrInvalidHeader)

	rec := []byte("NAME    = 'unterminated" + strings.Repeat(" ", 57))
	_, err = parseCard(rec)
	require.ErrorIs(t, err, errs.ErrInvalidHeader)
}

func TestCard_RoundTrip(t *testing.T) {
	values := []any{"cam1", "", true, false, int64(-7), int64(math.MaxInt64), uint64(math.MaxUint64), 0.1, -273.15, 6.02214076e23}

	for _, v := range values {
		card, err := NewCard("VALUE", v, "c")
		require.NoError(t, err)

		raw, err := card.AppendTo(nil)
		require.NoError(t, err)

		parsed, err := parseCard(raw)
		require.NoError(t, err)
		require.Equal(t, card.Value, parsed.Value)
		require.Equal(t, "c", parsed.Comment)
	}
}

func mustGet(t *testing.T, h *Header, keyword string) Card {
	t.Helper()

	c, ok := h.Get(keyword)
	require.True(t, ok, keyword)

	return c
}
