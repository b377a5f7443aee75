package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, DB row 에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5 → S6
//   Data  Universe  Signals  Portfolio  Factors  Transitions  Audit

// Stage represents a pipeline stage
type Stage string

const (
	// StageData S0: 패널 적재 및 원천 데이터 가공
	// 책임: CSV 적재, CRSP/Compustat/CCM 파생 변수, June 스냅샷 정렬(point-in-time)
	// 위치: internal/s0_data/
	StageData Stage = "S0_DATA"

	// StageUniverse S1: 유니버스 / 기준 모집단
	// 책임: 보통주 필터, 거래소 필터, valid_data 판정
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageSignals S2: 팩터 값 계산
	// 책임: 비율 팩터, 모멘텀 [lookback, lag], 산업 조정, 다년 평균
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StagePortfolio S3: 포트폴리오 구성
	// 책임: breakpoint 계산, 버킷 배정, 가치가중 수익률 집계
	// 위치: internal/portfolio/
	StagePortfolio Stage = "S3_PORTFOLIO"

	// StageFactors S4: 팩터 수익률
	// 책임: H-L 차분, 2x3 평균, Fama-French 복제, 벤치마크 비교
	// 위치: internal/factors/
	StageFactors Stage = "S4_FACTORS"

	// StageTransitions S5: 전이 행렬
	// 책임: 과거/현재 버킷 연결, 전이 확률 행렬, corner returns
	// 위치: internal/transitions/
	StageTransitions Stage = "S5_TRANSITIONS"

	// StageAudit S6: 통계 및 회귀
	// 책임: 요약 통계, CAPM, Fama-MacBeth, spanning 회귀, 기술 통계
	// 위치: internal/audit/
	StageAudit Stage = "S6_AUDIT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageData:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageSignals:
		return "S2"
	case StagePortfolio:
		return "S3"
	case StageFactors:
		return "S4"
	case StageTransitions:
		return "S5"
	case StageAudit:
		return "S6"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageData:
		return "패널 적재/가공"
	case StageUniverse:
		return "유니버스 필터"
	case StageSignals:
		return "팩터 값 계산"
	case StagePortfolio:
		return "포트폴리오 구성"
	case StageFactors:
		return "팩터 수익률"
	case StageTransitions:
		return "전이 행렬"
	case StageAudit:
		return "통계/회귀"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageData,
		StageUniverse,
		StageSignals,
		StagePortfolio,
		StageFactors,
		StageTransitions,
		StageAudit,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}
