package contracts

import (
	"errors"
	"fmt"
	"math"
)

// ErrorKind 오류 분류 태그
// ⭐ SSOT: 엔진이 반환하는 모든 도메인 오류는 이 중 하나로 분류됨
type ErrorKind string

const (
	KindInsufficientData    ErrorKind = "InsufficientDataError"
	KindInsufficientOverlap ErrorKind = "InsufficientOverlapError"
	KindInvalidPeriod       ErrorKind = "InvalidPeriodError"
	KindSingularCovariance  ErrorKind = "SingularCovarianceError"
	KindConvergenceFailure  ErrorKind = "ConvergenceFailureError"
	KindInvalidObjective    ErrorKind = "InvalidObjectiveError"
	KindData                ErrorKind = "FluxDataError"
	KindConfig              ErrorKind = "FluxConfigError"
)

// Sentinel errors for errors.Is matching by kind.
var (
	ErrInsufficientData    = &Error{Kind: KindInsufficientData}
	ErrInsufficientOverlap = &Error{Kind: KindInsufficientOverlap}
	ErrInvalidPeriod       = &Error{Kind: KindInvalidPeriod}
	ErrSingularCovariance  = &Error{Kind: KindSingularCovariance}
	ErrConvergenceFailure  = &Error{Kind: KindConvergenceFailure}
	ErrInvalidObjective    = &Error{Kind: KindInvalidObjective}
	ErrData                = &Error{Kind: KindData}
	ErrConfig              = &Error{Kind: KindConfig}
)

// Error is a tagged domain error.
// Asset, Metric and Value are optional context; Value is only reported when HasValue is set.
type Error struct {
	Kind     ErrorKind
	Asset    string
	Metric   string
	Value    float64
	HasValue bool
	Message  string
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Asset != "" {
		msg += fmt.Sprintf(" [asset=%s]", e.Asset)
	}
	if e.Metric != "" {
		msg += fmt.Sprintf(" [metric=%s]", e.Metric)
	}
	if e.HasValue {
		msg += fmt.Sprintf(" [value=%g]", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a tagged error with a formatted message
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ForAsset returns a copy of e annotated with the asset id
func (e *Error) ForAsset(asset string) *Error {
	cp := *e
	cp.Asset = asset
	return &cp
}

// ForMetric returns a copy of e annotated with the metric name
func (e *Error) ForMetric(metric string) *Error {
	cp := *e
	cp.Metric = metric
	return &cp
}

// WithValue returns a copy of e carrying the offending value.
// NaN and Inf are kept out of the error so they never reach serialized output.
func (e *Error) WithValue(v float64) *Error {
	cp := *e
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		cp.Value = v
		cp.HasValue = true
	}
	return &cp
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError extracts the first *Error in err's chain
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
