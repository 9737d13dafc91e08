package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/pricestore"
	"github.com/wonny/fluxrx/pkg/database"
)

// pricesCmd represents the prices command group
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "가격 저장소 관리 (CSV ↔ PostgreSQL)",
	Long: `가격 시계열을 PostgreSQL price_history 테이블로 가져오거나 CSV로 내보냅니다.

Example:
  go run ./cmd/flux prices import --prices prices.csv
  go run ./cmd/flux prices export --source postgres --assets SPY,TLT > out.csv`,
}

// pricesImportCmd loads a CSV into PostgreSQL
var pricesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "CSV → PostgreSQL (upsert)",
	RunE:  runPricesImport,
}

// pricesExportCmd writes the selected source as CSV to stdout
var pricesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "가격 소스 → CSV (stdout)",
	RunE:  runPricesExport,
}

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesImportCmd)
	pricesCmd.AddCommand(pricesExportCmd)
}

func runPricesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if pricesPath == "" {
		return fmt.Errorf("--prices is required")
	}

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	from, to, err := window()
	if err != nil {
		return err
	}
	series, err := pricestore.NewFileLoader(pricesPath).LoadSeries(ctx, assetList, from, to)
	if err != nil {
		return fmt.Errorf("read prices: %w", err)
	}

	db, err := database.New(ctx, rt.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	rt.db = db

	repo := pricestore.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	rows, err := repo.SaveSeries(ctx, series)
	if err != nil {
		return fmt.Errorf("save prices: %w", err)
	}

	rt.log.WithFields(map[string]interface{}{
		"assets": len(series),
		"rows":   rows,
		"file":   pricesPath,
	}).Info("Prices imported")
	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Imported %d rows for %d assets", rows, len(series)))
	return nil
}

func runPricesExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	series, _, err := rt.loadBatch(ctx)
	if err != nil {
		return err
	}
	return pricestore.WriteCSV(cmd.OutOrStdout(), series)
}
