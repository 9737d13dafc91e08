package engineconfig

import (
	"errors"
	"fmt"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/portfolio"
	"github.com/wonny/fluxrx/internal/risk"
	"github.com/wonny/fluxrx/internal/selection"
)

// ValidationError 검증 실패 (프로그램 중단)
// errors.Is(err, contracts.ErrConfig) 로도 매칭됨
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is matches FluxConfigError
func (e ValidationError) Is(target error) bool {
	return errors.Is(contracts.ErrConfig, target)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Returns ===
	if _, err := contracts.ParseReturnConvention(cfg.ReturnConvention); err != nil {
		return ValidationError{"return_convention", "must be simple or log"}
	}
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		return ValidationError{"confidence_level", fmt.Sprintf("must be in (0, 1), got %g", cfg.ConfidenceLevel)}
	}
	if cfg.PeriodsPerYear <= 0 {
		return ValidationError{"periods_per_year", "must be > 0"}
	}
	if cfg.MinOverlap < 1 {
		return ValidationError{"min_overlap", "must be >= 1"}
	}

	// === Metrics ===
	if err := cfg.Risk().Validate(); err != nil {
		return fieldError("metrics", err)
	}
	if err := cfg.CovarianceConfig().Validate(); err != nil {
		return fieldError("covariance", err)
	}

	// === Optimizer ===
	if _, err := portfolio.ParseObjective(cfg.Optimizer.Objective); err != nil {
		return ValidationError{"optimizer.objective", fmt.Sprintf("unknown objective %q", cfg.Optimizer.Objective)}
	}
	b := cfg.Optimizer.WeightBounds
	if b.Min > b.Max {
		return ValidationError{"optimizer.weight_bounds", "min must be <= max"}
	}
	for asset, ab := range cfg.Optimizer.AssetBounds {
		if ab.Min > ab.Max {
			return ValidationError{fmt.Sprintf("optimizer.asset_bounds[%s]", asset), "min must be <= max"}
		}
	}
	if cfg.Optimizer.Workers < 1 {
		return ValidationError{"optimizer.workers", "must be >= 1"}
	}
	switch risk.ExpectedReturnMethod(cfg.Optimizer.ExpectedReturns) {
	case risk.ExpectedMean, risk.ExpectedCAGR:
	default:
		return ValidationError{"optimizer.expected_returns", "must be mean or cagr"}
	}
	if err := cfg.OptimizerConfig().Validate(); err != nil {
		return fieldError("optimizer", err)
	}

	// === Screener ===
	if cfg.Screener.Workers < 1 {
		return ValidationError{"screener.workers", "must be >= 1"}
	}
	if _, err := selection.DefaultOrder(cfg.Screener.SortBy); err != nil {
		return ValidationError{"screener.sort_by", fmt.Sprintf("unknown metric %q", cfg.Screener.SortBy)}
	}
	if err := cfg.ScreenerConfig().Validate(); err != nil {
		return fieldError("screener", err)
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Optimizer.WeightBounds.Min < 0 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_SELLING",
			Message: "weight_bounds.min < 0: 공매도 허용",
		})
	}
	if cfg.Optimizer.Restarts < 4 && cfg.Optimizer.Objective == string(portfolio.MaxSharpe) {
		warnings = append(warnings, Warning{
			Code:    "FEW_RESTARTS",
			Message: "max_sharpe 재시작 < 4: 국소해 위험",
		})
	}
	if cfg.MinOverlap < 20 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_OVERLAP",
			Message: "min_overlap < 20: 공분산 추정 불안정",
		})
	}
	if cfg.Hurst.MinObservations < 100 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HURST_SAMPLE",
			Message: "hurst.min_observations < 100: R/S 추정 편향 큼",
		})
	}

	return warnings
}

func fieldError(section string, err error) error {
	var e *contracts.Error
	if errors.As(err, &e) {
		field := section
		if e.Metric != "" {
			field += "." + e.Metric
		}
		return ValidationError{field, e.Message}
	}
	return ValidationError{section, err.Error()}
}
