package currency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatSymbolBefore(t *testing.T) {
	p, err := ProfileFor("TSH")
	require.NoError(t, err)

	require.Equal(t, "TSh 1,234,567.89", Format(1234567.89, p))
	require.Equal(t, "TSh 0.00", Format(0, p))
	require.Equal(t, "TSh -250.50", Format(-250.5, p))
}

func TestFormatZeroDecimalPlaces(t *testing.T) {
	p, err := ProfileFor("UGX")
	require.NoError(t, err)

	require.Equal(t, "USh 2,500", Format(2500, p))
	require.Equal(t, "USh 2,501", Format(2500.6, p))
}

func TestFormatSymbolAfterWithEuropeanSeparators(t *testing.T) {
	p, err := ProfileFor("EUR")
	require.NoError(t, err)

	require.Equal(t, "1.234,50 €", Format(1234.5, p))
}

func TestParse(t *testing.T) {
	tsh, err := ProfileFor("TSH")
	require.NoError(t, err)

	amount, err := Parse("TSh 1,234.50", tsh)
	require.NoError(t, err)
	require.InDelta(t, 1234.50, amount, 0.0001)

	amount, err = Parse("", tsh)
	require.NoError(t, err)
	require.Zero(t, amount)

	eur, err := ProfileFor("EUR")
	require.NoError(t, err)
	amount, err = Parse("1.234,50 €", eur)
	require.NoError(t, err)
	require.InDelta(t, 1234.50, amount, 0.0001)

	_, err = Parse("not money", tsh)
	require.Error(t, err)
}

func TestProfileForUnknownCode(t *testing.T) {
	_, err := ProfileFor("XXX")
	require.ErrorIs(t, err, ErrUnsupportedCurrency)

	p, err := ProfileFor(" kes ")
	require.NoError(t, err)
	require.Equal(t, "KES", p.Code)
}
