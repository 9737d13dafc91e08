package selection

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/pkg/logger"
)

// Config 스크리너 설정
type Config struct {
	SortBy  string `json:"sort_by" yaml:"sort_by"` // 기본: sharpe_ratio
	Order   Order  `json:"order" yaml:"order"`     // 빈 값이면 지표 기본 방향
	Workers int    `json:"workers" yaml:"workers"` // 병렬 계산 수 (기본: 4)
}

// DefaultConfig returns the default screener configuration
func DefaultConfig() Config {
	return Config{
		SortBy:  contracts.MetricSharpe,
		Workers: 4,
	}
}

// Validate checks the sort field and order
func (c Config) Validate() error {
	if _, err := DefaultOrder(c.SortBy); err != nil {
		return err
	}
	if _, err := ParseOrder(string(c.Order)); err != nil {
		return err
	}
	return nil
}

// Screener computes metrics for many assets and ranks them
// ⭐ SSOT: 자산별 실패는 Excluded로 기록, 배치는 계속 진행
type Screener struct {
	calc   contracts.MetricsCalculator
	config Config
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(calc contracts.MetricsCalculator, config Config, log *logger.Logger) (*Screener, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Screener{
		calc:   calc,
		config: config,
		logger: log.WithComponent("screener"),
	}, nil
}

// Screen ranks assets by the configured field
func (s *Screener) Screen(ctx context.Context, series []contracts.PriceSeries, benchmark *contracts.PriceSeries) (*contracts.ScreenResult, error) {
	return s.ScreenBy(ctx, series, benchmark, s.config.SortBy, s.config.Order)
}

// ScreenBy ranks assets by an explicit field and order (빈 order → 기본 방향)
func (s *Screener) ScreenBy(
	ctx context.Context,
	series []contracts.PriceSeries,
	benchmark *contracts.PriceSeries,
	field string,
	order Order,
) (*contracts.ScreenResult, error) {
	natural, err := DefaultOrder(field)
	if err != nil {
		return nil, err
	}
	explicit, err := ParseOrder(string(order))
	if err != nil {
		return nil, err
	}
	if explicit == "" {
		explicit = natural
	}

	seen := make(map[string]struct{}, len(series))
	for _, ps := range series {
		if _, dup := seen[ps.Asset]; dup {
			return nil, &contracts.Error{Kind: contracts.KindData, Asset: ps.Asset, Message: "duplicate asset in screen batch"}
		}
		seen[ps.Asset] = struct{}{}
	}

	results := make([]*contracts.MetricsResult, len(series))
	failures := make([]error, len(series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.calc.Compute(series[i], benchmark)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	computed := make([]*contracts.MetricsResult, 0, len(series))
	excluded := make([]contracts.Exclusion, 0)
	for i, ps := range series {
		if failures[i] != nil {
			excluded = append(excluded, contracts.ExclusionFromError(ps.Asset, failures[i]))
			s.logger.WithError(failures[i]).WithField("asset", ps.Asset).Warn("asset excluded from screen")
			continue
		}
		computed = append(computed, results[i])
	}
	sort.Slice(excluded, func(i, j int) bool {
		return excluded[i].Asset < excluded[j].Asset
	})

	out := &contracts.ScreenResult{
		SortBy:   field,
		Order:    string(explicit),
		Ranked:   rank(computed, field, explicit),
		Excluded: excluded,
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input": len(series),
		"ranked":      len(out.Ranked),
		"excluded":    len(out.Excluded),
		"sort_by":     field,
		"order":       out.Order,
	}).Info("Screening completed")

	return out, nil
}
