package industry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		scheme Scheme
		sic    int
		want   string
	}{
		{"FF5 food", FF5, 2011, "Cnsmr"},
		{"FF5 oil refining", FF5, 2911, "Manuf"},
		{"FF5 software", FF5, 7372, "HiTec"},
		{"FF5 telephone", FF5, 4813, "HiTec"},
		{"FF5 drugs", FF5, 2834, "Hlth"},
		{"FF5 bank", FF5, 6021, "Other"},
		{"FF10 cars", FF10, 3711, "Durbl"},
		{"FF10 trucks", FF10, 3713, "Manuf"},
		{"FF10 coal", FF10, 1221, "Enrgy"},
		{"FF10 telephone", FF10, 4813, "Telcm"},
		{"FF10 retail", FF10, 5311, "Shops"},
		{"FF10 electric", FF10, 4911, "Utils"},
		{"FF12 chemicals", FF12, 2821, "Chems"},
		{"FF12 industrial controls", FF12, 3622, "Manuf"},
		{"FF12 bank", FF12, 6021, "Money"},
		{"FF12 construction", FF12, 1531, "Other"},
		{"missing sic", FF12, 0, "Other"},
		{"range upper bound", FF10, 999, "NoDur"},
		{"range lower bound", FF10, 100, "NoDur"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.scheme, tt.sic)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnknownScheme(t *testing.T) {
	_, err := ParseScheme(17)
	assert.ErrorIs(t, err, contracts.ErrUnknownScheme)

	_, err = Classify(Scheme(7), 2011)
	assert.ErrorIs(t, err, contracts.ErrUnknownScheme)

	_, err = Assign(Scheme(0), nil)
	assert.ErrorIs(t, err, contracts.ErrUnknownScheme)

	s, err := ParseScheme(12)
	require.NoError(t, err)
	assert.Equal(t, FF12, s)
	assert.Equal(t, []Scheme{FF5, FF10, FF12}, Schemes())
}

func TestIndustries(t *testing.T) {
	for _, s := range Schemes() {
		names, err := Industries(s)
		require.NoError(t, err)
		assert.Len(t, names, int(s))
		assert.Equal(t, "Other", names[len(names)-1])
	}
}

func TestAssign(t *testing.T) {
	rows := []contracts.Observation{{SIC: 2834}, {SIC: 6021}, {SIC: 7372}}
	labels, err := Assign(FF10, rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hlth", "Other", "HiTec"}, labels)
}
