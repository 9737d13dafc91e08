package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/engine"
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics [asset]",
	Short: "단일 자산 리스크/성과 지표",
	Long: `자산 하나의 전체 지표를 계산합니다.

CAGR, 변동성, Sharpe/Sortino/Calmar/Omega, MDD, VaR/CVaR,
Hurst, Z-score, 승률, (벤치마크 지정 시) 베타/알파/IR/TE.

Example:
  go run ./cmd/flux metrics SPY --prices prices.csv
  go run ./cmd/flux metrics QQQ --prices prices.csv --benchmark SPY --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

// percentMetrics 백분율로 표시할 지표
var percentMetrics = map[string]bool{
	contracts.MetricCAGR:          true,
	contracts.MetricVolatility:    true,
	contracts.MetricMaxDrawdown:   true,
	contracts.MetricVaR:           true,
	contracts.MetricCVaR:          true,
	contracts.MetricTrackingError: true,
	contracts.MetricTotalReturn:   true,
	contracts.MetricWinRate:       true,
	contracts.MetricAlpha:         true,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	series, bench, err := rt.loadOne(ctx, args)
	if err != nil {
		return err
	}
	res, err := rt.engine.Metrics(series, bench)
	if err != nil {
		return fmt.Errorf("metrics %s: %w", series.Asset, err)
	}

	return emit(cmd, rt, "metrics", res, func(w io.Writer, env engine.Envelope) {
		PrintRunHeader(w, RunHeader{
			Title:      "Metrics · " + res.Asset,
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
		})
		PrintKeyValue(w, "period", fmt.Sprintf("%s ~ %s (%d returns)",
			res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), res.Observations), 18)
		if bench != nil {
			PrintKeyValue(w, "benchmark", bench.Asset, 18)
		}
		PrintSeparator(w)
		for _, name := range contracts.MetricNames() {
			v, _ := res.Field(name)
			value := formatRatio(v)
			if percentMetrics[name] {
				value = formatPercent(v)
			}
			PrintKeyValue(w, name, value, 18)
		}
	})
}
