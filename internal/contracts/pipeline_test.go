package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_Names(t *testing.T) {
	tests := []struct {
		stage Stage
		short string
	}{
		{StageData, "S0"},
		{StageUniverse, "S1"},
		{StageSignals, "S2"},
		{StagePortfolio, "S3"},
		{StageFactors, "S4"},
		{StageTransitions, "S5"},
		{StageAudit, "S6"},
		{Stage("S9_UNKNOWN"), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			assert.Equal(t, tt.short, tt.stage.ShortName())
			assert.NotEmpty(t, tt.stage.Description())
		})
	}
}

func TestIsValidStage(t *testing.T) {
	assert.Len(t, AllStages(), 7)
	assert.True(t, IsValidStage("S4_FACTORS"))
	assert.False(t, IsValidStage("S7_EXECUTION"))
}
