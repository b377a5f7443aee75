package contracts

import "errors"

// 오류 분류
// - 결측 팩터 값: 오류 아님 (빈 버킷 → 집계 제외)
// - 빈 그룹: 해당 기간만 결측, 실행 계속
// - 설정 오류: 즉시 실패 (기본값으로 대체하지 않음)
var (
	// ErrInvalidConfig is returned for out-of-range configuration values
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownFactor is returned when a factor column does not exist
	ErrUnknownFactor = errors.New("unknown factor")

	// ErrUnknownScheme is returned for an unsupported industry scheme
	ErrUnknownScheme = errors.New("unknown industry scheme")

	// ErrLengthMismatch is returned when a column does not match the panel length
	ErrLengthMismatch = errors.New("column length does not match panel")

	// ErrMissingColumn is returned when an input file lacks a required column
	ErrMissingColumn = errors.New("missing input column")

	// ErrInsufficientData is returned when a statistic has too few observations
	ErrInsufficientData = errors.New("insufficient data")
)
