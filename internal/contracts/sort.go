package contracts

import (
	"fmt"
	"strings"
)

// ReferenceUniverse selects the breakpoint-defining population
type ReferenceUniverse string

const (
	// ReferenceAll uses every eligible common share
	ReferenceAll ReferenceUniverse = "ALL"

	// ReferenceNYSE uses NYSE common shares only
	ReferenceNYSE ReferenceUniverse = "NYSE_ONLY"
)

// IsValid reports whether the reference universe is known
func (r ReferenceUniverse) IsValid() bool {
	return r == ReferenceAll || r == ReferenceNYSE
}

// MomentumFactor is the name of the monthly momentum signal column
const MomentumFactor = "MOMENTUM"

// SortConfig is one factor / quantile / lookback configuration
// ⭐ SSOT: 정렬/전이 실행 단위 설정
type SortConfig struct {
	Quantiles      int               `json:"quantiles" yaml:"quantiles" validate:"gte=2,lte=100"`
	Factor         string            `json:"factor" yaml:"factor" validate:"required"`
	LookbackPeriod int               `json:"lookback_period" yaml:"lookback_period" validate:"gte=0"`
	Lag            int               `json:"lag" yaml:"lag" validate:"gte=0"`
	Reference      ReferenceUniverse `json:"reference_universe" yaml:"reference_universe" validate:"oneof=ALL NYSE_ONLY"`
	Sign           int               `json:"sign" yaml:"sign" validate:"oneof=-1 1"`
}

// Validate fails fast on out-of-range values
func (c SortConfig) Validate() error {
	if c.Quantiles < 2 {
		return fmt.Errorf("%w: quantiles must be >= 2, got %d", ErrInvalidConfig, c.Quantiles)
	}
	if strings.TrimSpace(c.Factor) == "" {
		return fmt.Errorf("%w: factor must not be empty", ErrInvalidConfig)
	}
	if c.Sign != 1 && c.Sign != -1 {
		return fmt.Errorf("%w: sign must be +1 or -1, got %d", ErrInvalidConfig, c.Sign)
	}
	if !c.Reference.IsValid() {
		return fmt.Errorf("%w: reference universe must be ALL or NYSE_ONLY, got %q", ErrInvalidConfig, c.Reference)
	}
	if c.LookbackPeriod < 0 || c.Lag < 0 {
		return fmt.Errorf("%w: lookback and lag must be non-negative", ErrInvalidConfig)
	}
	// 모멘텀 창 길이 = lookback - lag
	if c.IsMomentum() && c.LookbackPeriod <= c.Lag {
		return fmt.Errorf("%w: momentum lookback (%d) must exceed lag (%d)", ErrInvalidConfig, c.LookbackPeriod, c.Lag)
	}
	return nil
}

// IsMomentum reports whether the sort runs on the monthly momentum signal
func (c SortConfig) IsMomentum() bool {
	return c.Factor == MomentumFactor
}

// NYSEOnly reports whether breakpoints use NYSE stocks only
func (c SortConfig) NYSEOnly() bool {
	return c.Reference == ReferenceNYSE
}

// TopLabel returns the highest rank label ("N")
func (c SortConfig) TopLabel() string {
	return fmt.Sprint(c.Quantiles)
}

// BottomLabel returns the lowest rank label ("1")
func (c SortConfig) BottomLabel() string {
	return "1"
}

// Name returns a file-safe identifier, e.g. "BE_ME_q5_all" or "MOMENTUM_12_1_q5_nyse"
func (c SortConfig) Name() string {
	ref := "all"
	if c.NYSEOnly() {
		ref = "nyse"
	}
	if c.IsMomentum() {
		return fmt.Sprintf("%s_%d_%d_q%d_%s", c.Factor, c.LookbackPeriod, c.Lag, c.Quantiles, ref)
	}
	return fmt.Sprintf("%s_q%d_%s", c.Factor, c.Quantiles, ref)
}
