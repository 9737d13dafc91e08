package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/engine"
	"github.com/wonny/fluxrx/internal/selection"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "지표 기준 자산 스크리닝",
	Long: `자산별 지표를 병렬 계산하고 한 지표로 순위를 매깁니다.

데이터가 부족한 자산은 사유와 함께 제외 목록에 기록됩니다.
정렬 방향 기본값은 지표별로 정해져 있습니다 (volatility/var/cvar → 오름차순).

Example:
  go run ./cmd/flux screen --prices prices.csv
  go run ./cmd/flux screen --prices prices.csv --sort-by max_drawdown --top 10
  go run ./cmd/flux screen --source postgres --sort-by information_ratio --benchmark SPY`,
	RunE: runScreen,
}

var (
	screenSortBy string
	screenOrder  string
	screenTop    int
)

func init() {
	rootCmd.AddCommand(screenCmd)

	// Flags
	screenCmd.Flags().StringVar(&screenSortBy, "sort-by", "", "metric to rank by (default: engine config)")
	screenCmd.Flags().StringVar(&screenOrder, "order", "", "asc|desc (default: metric direction)")
	screenCmd.Flags().IntVar(&screenTop, "top", 0, "show only the top N assets")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	batch, bench, err := rt.loadBatch(ctx)
	if err != nil {
		return err
	}
	res, err := rt.engine.Screen(ctx, batch, bench, screenSortBy, selection.Order(screenOrder))
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if screenTop > 0 {
		res.Ranked = res.Top(screenTop)
	}

	return emit(cmd, rt, "screen", res, func(w io.Writer, env engine.Envelope) {
		PrintRunHeader(w, RunHeader{
			Title:      fmt.Sprintf("Screen · %s (%s)", res.SortBy, res.Order),
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
			Assets:     len(batch),
		})
		widths := []int{5, 12, 14, 10, 10, 10, 10}
		PrintTableHeader(w, []string{"Rank", "Asset", res.SortBy, "CAGR", "Vol", "Sharpe", "MDD"}, widths)
		for _, r := range res.Ranked {
			key, _ := r.Metrics.Field(res.SortBy)
			keyText := formatRatio(key)
			if percentMetrics[res.SortBy] {
				keyText = formatPercent(key)
			}
			PrintTableRow(w, []string{
				strconv.Itoa(r.Rank),
				r.Asset,
				keyText,
				formatPercent(r.Metrics.CAGR),
				formatPercent(r.Metrics.Volatility),
				formatRatio(r.Metrics.SharpeRatio),
				formatPercent(r.Metrics.MaxDrawdown),
			}, widths)
		}
		PrintExclusions(w, res.Excluded)
	})
}
