package studyconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match contracts.ErrInvalidConfig
func (e ValidationError) Unwrap() error {
	return contracts.ErrInvalidConfig
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 에러 메시지에 yaml 필드 이름 사용
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags first, then the cross-field constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Config."),
				Message: describeTag(fe),
			}
		}
		return err
	}

	// === Window ===
	w, err := cfg.Window.Parse(contracts.Window{})
	if err != nil {
		return ValidationError{"window", err.Error()}
	}
	if !w.Start.IsZero() && !w.End.IsZero() && !w.Start.Before(w.End) {
		return ValidationError{"window", "start must be before end"}
	}

	// === Sorts ===
	seen := make(map[string]bool, len(cfg.Sorts))
	for i, s := range cfg.Sorts {
		if err := s.Validate(); err != nil {
			return ValidationError{fmt.Sprintf("sorts[%d]", i), err.Error()}
		}
		if seen[s.Name()] {
			return ValidationError{fmt.Sprintf("sorts[%d]", i), fmt.Sprintf("duplicate sort %s", s.Name())}
		}
		seen[s.Name()] = true
	}

	// === Transitions ===
	for i, j := range cfg.Transitions {
		field := fmt.Sprintf("transitions[%d]", i)
		if err := j.Sort.Validate(); err != nil {
			return ValidationError{field + ".sort", err.Error()}
		}
		if j.Sort.IsMomentum() && j.VariantOrDefault() != "standard" {
			return ValidationError{field + ".variant", fmt.Sprintf("%s needs an annual factor", j.Variant)}
		}
		if j.Variant != "industry" && j.Variant != "industry_adjusted" && j.Industries != 0 {
			return ValidationError{field + ".industries", "only used by industry variants"}
		}
	}

	// === Describe ===
	for i := 1; i < len(cfg.Describe.Percentiles); i++ {
		if cfg.Describe.Percentiles[i] <= cfg.Describe.Percentiles[i-1] {
			return ValidationError{"describe.percentiles", "must be strictly increasing"}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.JobCount() == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_JOBS",
			Message: "실행할 작업 없음",
		})
	}

	// 분위 수가 많으면 NYSE 기준 포트폴리오가 비는 기간 발생
	for _, s := range cfg.Sorts {
		if s.Quantiles > 20 && s.NYSEOnly() {
			warnings = append(warnings, Warning{
				Code:    "SPARSE_QUANTILES",
				Message: fmt.Sprintf("%s: NYSE 기준 %d 분위는 빈 포트폴리오 가능", s.Name(), s.Quantiles),
			})
		}
	}

	// Compustat 커버리지 이전 구간
	if cfg.Window.Start != "" && cfg.Window.Start < "1963-07-01" {
		warnings = append(warnings, Warning{
			Code:    "EARLY_WINDOW",
			Message: "1963-07 이전은 Compustat 커버리지 부족",
		})
	}

	return warnings
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a %s date", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
}
