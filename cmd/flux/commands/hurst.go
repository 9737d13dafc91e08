package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/engine"
	"github.com/wonny/fluxrx/internal/timeseries"
)

// hurstCmd represents the hurst command
var hurstCmd = &cobra.Command{
	Use:   "hurst [asset]",
	Short: "Hurst 지수 (R/S 분석) 및 시장 국면",
	Long: `수익률의 R/S 분석으로 Hurst 지수를 추정합니다.

  H ≈ 0.5  random walk
  H > 0.5  persistent (추세 지속)
  H < 0.5  mean-reverting (평균 회귀)

Example:
  go run ./cmd/flux hurst SPY --prices prices.csv
  go run ./cmd/flux hurst SPY --prices prices.csv --regime`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHurst,
}

var hurstRegime bool

func init() {
	rootCmd.AddCommand(hurstCmd)

	// Flags
	hurstCmd.Flags().BoolVar(&hurstRegime, "regime", false, "also classify trend/volatility regime")
}

// hurstOutput hurst 커맨드 결과
type hurstOutput struct {
	*engine.HurstReport
	Market *timeseries.Regime `json:"market_regime,omitempty"`
}

func runHurst(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	series, _, err := rt.loadOne(ctx, args)
	if err != nil {
		return err
	}
	rep, err := rt.engine.Hurst(series)
	if err != nil {
		return fmt.Errorf("hurst %s: %w", series.Asset, err)
	}
	out := hurstOutput{HurstReport: rep}
	if hurstRegime {
		reg, err := rt.engine.Regime(series)
		if err != nil {
			return fmt.Errorf("regime %s: %w", series.Asset, err)
		}
		out.Market = reg
	}

	return emit(cmd, rt, "hurst", out, func(w io.Writer, env engine.Envelope) {
		PrintRunHeader(w, RunHeader{
			Title:      "Hurst · " + rep.Asset,
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
		})
		PrintKeyValue(w, "hurst", formatRatio(rep.Hurst), 14)
		if rep.Regime != "" {
			PrintKeyValue(w, "interpretation", string(rep.Regime), 14)
		}
		PrintKeyValue(w, "z-score", formatRatio(rep.ZScore), 14)
		PrintKeyValue(w, "observations", fmt.Sprintf("%d", rep.Observations), 14)
		if out.Market != nil {
			PrintKeyValue(w, "trend", fmt.Sprintf("%s (MA %.2f / %.2f)", out.Market.Trend, out.Market.ShortMA, out.Market.LongMA), 14)
			PrintKeyValue(w, "volatility", fmt.Sprintf("%s (%.2f%%)", out.Market.VolatilityRegime, out.Market.RollingVol*100), 14)
		}
	})
}
