package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "100", want: "100"},
		{name: "fraction", input: "49.90", want: "49.9"},
		{name: "surrounding whitespace", input: " 15 ", want: "15"},
		{name: "non-numeric", input: "ten", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New("", "desc", decimal.NewFromInt(10), KindKey, nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = New("Key-A", "desc", decimal.Zero, KindKey, nil)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	p, err := New("Key-A", "desc", decimal.NewFromInt(10), Kind("bogus"), nil)
	require.NoError(t, err)
	assert.Equal(t, KindKey, p.Kind)
}

func TestStockCount(t *testing.T) {
	key, err := New("Key-A", "", decimal.NewFromInt(10), KindKey, []string{"K1", "K2"})
	require.NoError(t, err)
	assert.Equal(t, 2, key.StockCount())

	file, err := New("File-A", "", decimal.NewFromInt(10), KindFile, []string{"tok"})
	require.NoError(t, err)
	assert.Equal(t, 1, file.StockCount())

	empty, err := New("File-B", "", decimal.NewFromInt(10), KindFile, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.StockCount())
}

func TestUnitsRoundTrip(t *testing.T) {
	units := SplitUnits("K1\n\n  K2  \nK3")
	assert.Equal(t, []string{"K1", "K2", "K3"}, units)
	assert.Equal(t, "K1\nK2\nK3", JoinUnits(units))
	assert.Nil(t, SplitUnits("  \n "))
}

func TestCloneIsDeep(t *testing.T) {
	p, err := New("Key-A", "", decimal.NewFromInt(10), KindKey, []string{"K1"})
	require.NoError(t, err)

	clone := p.Clone()
	clone.Units[0] = "changed"
	assert.Equal(t, "K1", p.Units[0])
}
