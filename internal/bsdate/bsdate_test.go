package bsdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ad(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestFromAD_KnownDates(t *testing.T) {
	cases := map[string]Date{
		"1943-04-14": {2000, 1, 1},
		"2024-06-28": {2081, 3, 14},
		"2025-01-01": {2081, 9, 17},
		"2033-04-13": {2089, 12, 30},
	}
	for in, want := range cases {
		got, ok := FromAD(ad(in))
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}

func TestFromAD_OutOfRange(t *testing.T) {
	_, ok := FromAD(ad("1943-04-13"))
	assert.False(t, ok)
	_, ok = FromAD(ad("2033-04-14"))
	assert.False(t, ok)
	assert.Equal(t, "", Format(ad("1900-01-01"), "short"))
}

func TestRoundTrip(t *testing.T) {
	for d := ad("2019-12-25"); d.Before(ad("2021-03-01")); d = d.AddDate(0, 0, 13) {
		bs, ok := FromAD(d)
		require.True(t, ok)
		back, ok := ToAD(bs)
		require.True(t, ok)
		assert.Equal(t, d, back, bs.String())
	}
}

func TestToAD_RejectsInvalidDay(t *testing.T) {
	_, ok := ToAD(Date{2081, 1, 40})
	assert.False(t, ok)
	_, ok = ToAD(Date{1999, 1, 1})
	assert.False(t, ok)
}

func TestFormatting(t *testing.T) {
	d := ad("2024-06-28")
	assert.Equal(t, "2081-03-14", Format(d, "short"))
	assert.Equal(t, "14 Ashadh 2081", Format(d, "medium"))
	assert.Equal(t, "14 Ashadh, 2081", Format(d, "long"))
	assert.Equal(t, "2024-06-28 (2081-03-14 BS)", Dual(d, "short"))
	assert.Equal(t, "Jun 28, 2024 (14 Ashadh 2081 BS)", Dual(d, "medium"))
	assert.Equal(t, "", Dual(time.Time{}, "short"))
}
