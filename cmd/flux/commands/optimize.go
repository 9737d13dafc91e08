package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/engine"
	"github.com/wonny/fluxrx/internal/portfolio"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "제약 하 포트폴리오 비중 최적화",
	Long: `정렬된 수익률의 공분산과 기대수익률로 비중을 계산합니다.

Objectives:
  max_sharpe      (sharpe)   다중 시작 Nelder-Mead
  min_volatility  (min_vol)  사영 경사법
  max_return      (return)   상한 순서대로 채우기
  equal_weight               1/n 기준

Example:
  go run ./cmd/flux optimize --prices prices.csv
  go run ./cmd/flux optimize --prices prices.csv --objective min_vol --bound TLT=0.1:0.4
  go run ./cmd/flux optimize --prices prices.csv --frontier 20 --json`,
	RunE: runOptimize,
}

var (
	optimizeObjective string
	optimizeBounds    []string
	optimizeFrontier  int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	// Flags
	optimizeCmd.Flags().StringVar(&optimizeObjective, "objective", "", "objective (default: engine config)")
	optimizeCmd.Flags().StringSliceVar(&optimizeBounds, "bound", nil, "per-asset bound ASSET=MIN:MAX (repeatable)")
	optimizeCmd.Flags().IntVar(&optimizeFrontier, "frontier", 0, "trace N efficient-frontier points instead of one solve")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bounds, err := parseBounds(optimizeBounds)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	batch, _, err := rt.loadBatch(ctx)
	if err != nil {
		return err
	}

	if optimizeFrontier > 0 {
		return runFrontier(cmd, rt, batch)
	}

	rep, err := rt.engine.Optimize(ctx, batch, engine.OptimizeRequest{
		Objective:   optimizeObjective,
		AssetBounds: bounds,
	})
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	return emit(cmd, rt, "optimize", rep, func(w io.Writer, env engine.Envelope) {
		res := rep.Result
		PrintRunHeader(w, RunHeader{
			Title:      "Optimize · " + res.Objective,
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
			Assets:     len(res.Weights),
		})
		widths := []int{12, 10, 12}
		PrintTableHeader(w, []string{"Asset", "Weight", "E[r]"}, widths)
		for _, a := range res.Weights.Assets() {
			PrintTableRow(w, []string{
				a,
				fmt.Sprintf("%.2f%%", res.Weights[a]*100),
				fmt.Sprintf("%.2f%%", rep.ExpectedReturns[a]*100),
			}, widths)
		}
		PrintSeparator(w)
		PrintKeyValue(w, "expected return", fmt.Sprintf("%.2f%%", res.ExpectedReturn*100), 16)
		PrintKeyValue(w, "volatility", fmt.Sprintf("%.2f%%", res.ExpectedVolatility*100), 16)
		PrintKeyValue(w, "sharpe", formatRatio(res.SharpeRatio), 16)
		PrintKeyValue(w, "iterations", strconv.Itoa(res.Iterations), 16)
		if res.Restarts > 0 {
			PrintKeyValue(w, "restarts", strconv.Itoa(res.Restarts), 16)
		}
		PrintKeyValue(w, "periods", strconv.Itoa(rep.Periods), 16)
		PrintExclusions(w, rep.Excluded)
	})
}

// runFrontier prints the mean-variance frontier from min-variance to max-return
func runFrontier(cmd *cobra.Command, rt *runtime, batch []contracts.PriceSeries) error {
	rep, err := rt.engine.Frontier(batch, optimizeFrontier)
	if err != nil {
		return fmt.Errorf("frontier: %w", err)
	}

	return emit(cmd, rt, "frontier", rep, func(w io.Writer, env engine.Envelope) {
		PrintRunHeader(w, RunHeader{
			Title:      fmt.Sprintf("Efficient frontier · %d points", len(rep.Points)),
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
			Assets:     len(batch),
		})
		widths := []int{4, 10, 10, 8, 40}
		PrintTableHeader(w, []string{"#", "E[r]", "Vol", "Sharpe", "Top weights"}, widths)
		for i, p := range rep.Points {
			PrintTableRow(w, []string{
				strconv.Itoa(i + 1),
				fmt.Sprintf("%.2f%%", p.ExpectedReturn*100),
				fmt.Sprintf("%.2f%%", p.ExpectedVolatility*100),
				formatRatio(p.SharpeRatio),
				topWeights(p.Weights, 3),
			}, widths)
		}
		PrintExclusions(w, rep.Excluded)
	})
}

// topWeights renders the n largest weights as "A 40% · B 35%"
func topWeights(w contracts.PortfolioWeights, n int) string {
	assets := w.Assets()
	sort.SliceStable(assets, func(i, j int) bool { return w[assets[i]] > w[assets[j]] })
	parts := make([]string, 0, n)
	for _, a := range assets {
		if len(parts) == n || w[a] < 0.005 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", a, w[a]*100))
	}
	return strings.Join(parts, " · ")
}

// parseBounds parses ASSET=MIN:MAX entries
func parseBounds(entries []string) (map[string]portfolio.Bound, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]portfolio.Bound, len(entries))
	for _, e := range entries {
		asset, rng, ok := strings.Cut(e, "=")
		lo, hi, ok2 := strings.Cut(rng, ":")
		if !ok || !ok2 || strings.TrimSpace(asset) == "" {
			return nil, fmt.Errorf("invalid --bound %q (expected ASSET=MIN:MAX)", e)
		}
		lower, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --bound %q: %w", e, err)
		}
		upper, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --bound %q: %w", e, err)
		}
		if lower > upper {
			return nil, fmt.Errorf("invalid --bound %q: min > max", e)
		}
		out[strings.TrimSpace(asset)] = portfolio.Bound{Min: lower, Max: upper}
	}
	return out, nil
}
