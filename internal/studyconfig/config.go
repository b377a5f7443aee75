package studyconfig

import (
	"fmt"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// DateLayout is the date format of study files
const DateLayout = "2006-01-02"

// Config는 한 번의 연구 실행(정렬, 전이, 회귀, 기술통계)의 전체 설정
type Config struct {
	Meta        Meta                   `yaml:"meta" json:"meta"`
	Window      Window                 `yaml:"window" json:"window"`
	Replication Replication            `yaml:"replication" json:"replication"`
	Sorts       []contracts.SortConfig `yaml:"sorts" json:"sorts" validate:"dive"`
	Transitions []TransitionJob        `yaml:"transitions" json:"transitions" validate:"dive"`
	Regressions Regressions            `yaml:"regressions" json:"regressions"`
	Describe    DescribeJob            `yaml:"describe" json:"describe"`
	Output      Output                 `yaml:"output" json:"output"`
}

// Meta 메타 정보
type Meta struct {
	StudyID     string `yaml:"study_id" json:"study_id" validate:"required"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Window 평가 구간 (비우면 환경 설정값 사용)
type Window struct {
	Start string `yaml:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `yaml:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
}

// Parse converts the window to contracts.Window, falling back to def per bound
func (w Window) Parse(def contracts.Window) (contracts.Window, error) {
	out := def
	if w.Start != "" {
		t, err := time.Parse(DateLayout, w.Start)
		if err != nil {
			return contracts.Window{}, fmt.Errorf("window.start: %w", err)
		}
		out.Start = t
	}
	if w.End != "" {
		t, err := time.Parse(DateLayout, w.End)
		if err != nil {
			return contracts.Window{}, fmt.Errorf("window.end: %w", err)
		}
		out.End = t
	}
	return out, nil
}

// Replication Fama-French 팩터 복제 및 공표 팩터 비교
type Replication struct {
	Enable      bool   `yaml:"enable" json:"enable"`
	CompareFrom string `yaml:"compare_from" json:"compare_from" validate:"omitempty,datetime=2006-01-02"`
}

// TransitionJob 전이 행렬 작업
type TransitionJob struct {
	Sort       contracts.SortConfig `yaml:"sort" json:"sort"`
	Variant    string               `yaml:"variant" json:"variant" validate:"omitempty,oneof=standard multi_year returns industry_adjusted industry"`
	Industries int                  `yaml:"industries" json:"industries" validate:"omitempty,oneof=5 10 12"`
	Span       int                  `yaml:"span" json:"span" validate:"gte=0,lte=20"`
}

// VariantOrDefault returns the variant name, "standard" when empty
func (j TransitionJob) VariantOrDefault() string {
	if j.Variant == "" {
		return "standard"
	}
	return j.Variant
}

// Regressions 회귀 분석 작업
type Regressions struct {
	FamaMacBeth []FamaMacBethJob `yaml:"fama_macbeth" json:"fama_macbeth" validate:"dive"`
	Spanning    []SpanningJob    `yaml:"spanning" json:"spanning" validate:"dive"`
}

// FamaMacBethJob 통제변수 + 예측변수 횡단면 회귀
type FamaMacBethJob struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Predictors []string `yaml:"predictors" json:"predictors" validate:"dive,required"`
}

// SpanningJob factor 를 on 팩터들에 시계열 회귀
type SpanningJob struct {
	Factor string   `yaml:"factor" json:"factor" validate:"required"`
	On     []string `yaml:"on" json:"on" validate:"min=1,dive,required"`
}

// DescribeJob 기간별 횡단면 기술통계
type DescribeJob struct {
	Variables   []string  `yaml:"variables" json:"variables" validate:"dive,required"`
	Percentiles []float64 `yaml:"percentiles" json:"percentiles" validate:"dive,gt=0,lt=100"`
}

// Output 출력 형식
type Output struct {
	Formats   []string `yaml:"formats" json:"formats" validate:"dive,oneof=csv xlsx json console"`
	Precision int      `yaml:"precision" json:"precision" validate:"gte=0,lte=10"`
}

// JobCount returns the number of configured jobs
func (c *Config) JobCount() int {
	n := len(c.Sorts) + len(c.Transitions) + len(c.Regressions.FamaMacBeth) + len(c.Regressions.Spanning)
	if c.Replication.Enable {
		n++
	}
	if len(c.Describe.Variables) > 0 {
		n++
	}
	return n
}
