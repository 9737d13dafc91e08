package pricestore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
)

// dateLayouts CSV 날짜 형식 (순서대로 시도)
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// FileLoader reads long-format CSV: asset,date,close
// ⭐ 헤더 행은 선택 (첫 행의 close가 숫자가 아니면 헤더로 간주)
type FileLoader struct {
	path string
}

// NewFileLoader creates a CSV loader
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// LoadSeries implements contracts.PriceLoader.
// assets가 비어 있으면 파일의 모든 자산 (ID 순)
func (l *FileLoader) LoadSeries(ctx context.Context, assets []string, from, to time.Time) ([]contracts.PriceSeries, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open prices file: %w", err)
	}
	defer f.Close()

	all, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return selectSeries(all, assets, from, to), nil
}

// ReadCSV parses long-format rows into per-asset series sorted by time
func ReadCSV(r io.Reader) (map[string]contracts.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	out := make(map[string]contracts.PriceSeries)
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &contracts.Error{Kind: contracts.KindData, Message: err.Error()}
		}

		asset := strings.TrimSpace(rec[0])
		price, perr := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if perr != nil {
			if line == 1 {
				continue // header
			}
			return nil, &contracts.Error{Kind: contracts.KindData, Asset: asset, Message: fmt.Sprintf("line %d: bad close %q", line, rec[2])}
		}
		ts, terr := parseDate(rec[1])
		if terr != nil {
			return nil, &contracts.Error{Kind: contracts.KindData, Asset: asset, Message: fmt.Sprintf("line %d: bad date %q", line, rec[1])}
		}

		s := out[asset]
		s.Asset = asset
		s.Points = append(s.Points, contracts.PricePoint{Time: ts, Price: price})
		out[asset] = s
	}

	for asset, s := range out {
		sort.SliceStable(s.Points, func(i, j int) bool {
			return s.Points[i].Time.Before(s.Points[j].Time)
		})
		out[asset] = s
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// WriteCSV writes series in long format with a header
func WriteCSV(w io.Writer, series []contracts.PriceSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"asset", "date", "close"}); err != nil {
		return err
	}
	for _, s := range series {
		for _, p := range s.Points {
			row := []string{s.Asset, p.Time.UTC().Format("2006-01-02"), strconv.FormatFloat(p.Price, 'f', -1, 64)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// selectSeries picks requested assets in order and trims to [from, to].
// 없는 자산은 빈 시계열로 반환 (하류에서 InsufficientDataError로 보고)
func selectSeries(all map[string]contracts.PriceSeries, assets []string, from, to time.Time) []contracts.PriceSeries {
	if len(assets) == 0 {
		for a := range all {
			assets = append(assets, a)
		}
		sort.Strings(assets)
	}
	out := make([]contracts.PriceSeries, 0, len(assets))
	for _, a := range assets {
		s, ok := all[a]
		if !ok {
			out = append(out, contracts.PriceSeries{Asset: a})
			continue
		}
		out = append(out, s.Window(from, to))
	}
	return out
}
