package portfolio

import (
	"strings"

	"github.com/wonny/fluxrx/internal/contracts"
)

// Objective 최적화 목적함수
type Objective string

const (
	MaxSharpe     Objective = "max_sharpe"
	MinVolatility Objective = "min_volatility"
	MaxReturn     Objective = "max_return"
)

// Objectives lists the supported objectives
func Objectives() []Objective {
	return []Objective{MaxSharpe, MinVolatility, MaxReturn}
}

// ParseObjective parses an objective name.
// 별칭: sharpe, min_vol, return
func ParseObjective(s string) (Objective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max_sharpe", "sharpe":
		return MaxSharpe, nil
	case "min_volatility", "min_vol":
		return MinVolatility, nil
	case "max_return", "return":
		return MaxReturn, nil
	}
	return "", &contracts.Error{
		Kind:    contracts.KindInvalidObjective,
		Message: "unknown objective " + strings.TrimSpace(s) + " (expected max_sharpe, min_volatility or max_return)",
	}
}
