package commands

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time (-ldflags "-X .../commands.version=...")
var version = "dev"

var (
	// Global flags
	engineConfigPath string
	pricesPath       string
	source           string
	assetList        []string
	benchmarkAsset   string
	fromDate         string
	toDate           string
	jsonOutput       bool
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flux",
	Short: "Flux - 리스크 지표 · 스크리닝 · 포트폴리오 최적화 엔진",
	Long: `Flux Analytics CLI

가격 시계열에서 리스크/성과 지표를 계산하고,
자산을 스크리닝하며, 제약 하의 포트폴리오 비중을 최적화합니다.

Price sources:
  --prices file.csv      long format: asset,date,close
  --source postgres      DATABASE_URL (+ REDIS_ENABLED 캐시)

Usage:
  go run ./cmd/flux [command]

Examples:
  go run ./cmd/flux metrics --prices prices.csv --assets SPY
  go run ./cmd/flux screen --prices prices.csv --sort-by sortino_ratio
  go run ./cmd/flux optimize --prices prices.csv --objective min_volatility --json
  go run ./cmd/flux serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&engineConfigPath, "engine-config", "", "engine config YAML (default: ENGINE_CONFIG or built-in defaults)")
	pf.StringVar(&pricesPath, "prices", "", "price CSV file (asset,date,close)")
	pf.StringVar(&source, "source", sourceCSV, "price source (csv|postgres)")
	pf.StringSliceVar(&assetList, "assets", nil, "comma-separated asset ids (default: all assets in the source)")
	pf.StringVar(&benchmarkAsset, "benchmark", "", "benchmark asset id (loaded from the same source)")
	pf.StringVar(&fromDate, "from", "", "window start (YYYY-MM-DD)")
	pf.StringVar(&toDate, "to", "", "window end (YYYY-MM-DD)")
	pf.BoolVar(&jsonOutput, "json", false, "print a JSON envelope instead of tables")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
