package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/engine"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [asset]",
	Short: "낙폭/롤링 지표/월별·연별 수익률",
	Long: `자산 하나의 시점별 지표를 계산합니다.

낙폭 시계열, 롤링 변동성과 샤프, 롤링 Z-score, 월별/연별 수익률.

Example:
  go run ./cmd/flux history SPY --prices prices.csv
  go run ./cmd/flux history SPY --prices prices.csv --window 63 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyWindow int

func init() {
	rootCmd.AddCommand(historyCmd)

	// Flags
	historyCmd.Flags().IntVar(&historyWindow, "window", engine.DefaultRollingWindow, "rolling window in periods")
}

func runHistory(cmd *cobra.Command, args []string) error {
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
	rep, err := rt.engine.History(series, historyWindow)
	if err != nil {
		return fmt.Errorf("history %s: %w", series.Asset, err)
	}

	return emit(cmd, rt, "history", rep, func(w io.Writer, env engine.Envelope) {
		PrintRunHeader(w, RunHeader{
			Title:      fmt.Sprintf("History · %s (window %d)", rep.Asset, rep.Window),
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
		})

		if n := len(rep.RollingVolatility); n > 0 {
			last := rep.RollingVolatility[n-1]
			PrintKeyValue(w, "rolling vol", fmt.Sprintf("%s (%s)", formatPercent(last.Value), last.Time.Format("2006-01-02")), 14)
		}
		if n := len(rep.RollingSharpe); n > 0 {
			PrintKeyValue(w, "rolling sharpe", formatRatio(rep.RollingSharpe[n-1].Value), 14)
		}
		if n := len(rep.Drawdown); n > 0 {
			PrintKeyValue(w, "drawdown", formatPercent(rep.Drawdown[n-1].Value), 14)
		}
		PrintSeparator(w)

		widths := []int{10, 10}
		PrintTableHeader(w, []string{"Year", "Return"}, widths)
		for _, y := range rep.YearlyReturns {
			PrintTableRow(w, []string{y.Label, fmt.Sprintf("%.2f%%", y.Return*100)}, widths)
		}
		fmt.Fprintln(w)
		PrintTableHeader(w, []string{"Month", "Return"}, widths)
		for _, m := range rep.MonthlyReturns {
			PrintTableRow(w, []string{m.Label, fmt.Sprintf("%.2f%%", m.Return*100)}, widths)
		}
	})
}
