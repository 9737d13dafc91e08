package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/engine"
)

// covarianceCmd represents the covariance command
var covarianceCmd = &cobra.Command{
	Use:   "covariance",
	Short: "연율화 공분산/상관 행렬",
	Long: `자산들의 공통 시점 수익률로 연율화 공분산과 상관계수를 계산합니다.

조건수가 설정 한도를 넘으면 singular로 표시됩니다.

Example:
  go run ./cmd/flux covariance --prices prices.csv --assets SPY,TLT,GLD
  go run ./cmd/flux covariance --prices prices.csv --correlation`,
	RunE: runCovariance,
}

var covarianceCorrelation bool

func init() {
	rootCmd.AddCommand(covarianceCmd)

	// Flags
	covarianceCmd.Flags().BoolVar(&covarianceCorrelation, "correlation", false, "print the correlation matrix instead of covariance")
}

func runCovariance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	batch, _, err := rt.loadBatch(ctx)
	if err != nil {
		return err
	}
	rep, err := rt.engine.Covariance(batch)
	if err != nil {
		return fmt.Errorf("covariance: %w", err)
	}

	return emit(cmd, rt, "covariance", rep, func(w io.Writer, env engine.Envelope) {
		m := rep.Matrix
		title, rows := "Covariance (annualized)", m.Rows()
		if covarianceCorrelation {
			title, rows = "Correlation", m.CorrelationRows()
		}
		PrintRunHeader(w, RunHeader{
			Title:      title,
			RunID:      env.RunID,
			ConfigHash: env.ConfigHash,
			Source:     sourceLabel(rt),
			Assets:     len(m.Assets),
		})

		columns := append([]string{""}, m.Assets...)
		widths := make([]int, len(columns))
		for i := range widths {
			widths[i] = 10
		}
		PrintTableHeader(w, columns, widths)
		for i, row := range rows {
			values := []string{m.Assets[i]}
			for _, v := range row {
				values = append(values, fmt.Sprintf("%.5f", v))
			}
			PrintTableRow(w, values, widths)
		}
		PrintSeparator(w)
		PrintKeyValue(w, "periods", fmt.Sprintf("%d", m.Periods), 16)
		PrintKeyValue(w, "condition number", fmt.Sprintf("%.3g", m.ConditionNumber), 16)
		if m.Singular {
			PrintWarning(w, "covariance is ill-conditioned; optimization will be rejected")
		}
		PrintExclusions(w, rep.Excluded)
	})
}
