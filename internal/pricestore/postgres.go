package pricestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fluxrx/internal/contracts"
)

// schema 가격 테이블 (자산, 시각) 유일
const schema = `
CREATE TABLE IF NOT EXISTS price_history (
	asset      TEXT             NOT NULL,
	ts         TIMESTAMPTZ      NOT NULL,
	close      DOUBLE PRECISION NOT NULL CHECK (close > 0),
	PRIMARY KEY (asset, ts)
)`

// Repository stores price histories in PostgreSQL
// ⭐ SSOT: 가격 데이터 DB 접근은 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the price table if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure price schema: %w", err)
	}
	return nil
}

// LoadSeries implements contracts.PriceLoader.
// assets가 비어 있으면 저장된 모든 자산
func (r *Repository) LoadSeries(ctx context.Context, assets []string, from, to time.Time) ([]contracts.PriceSeries, error) {
	if len(assets) == 0 {
		all, err := r.Assets(ctx)
		if err != nil {
			return nil, err
		}
		assets = all
	}

	query := `
		SELECT asset, ts, close
		FROM price_history
		WHERE asset = ANY($1)
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY asset, ts ASC
	`

	rows, err := r.pool.Query(ctx, query, assets, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	byAsset := make(map[string]contracts.PriceSeries, len(assets))
	for rows.Next() {
		var (
			asset string
			p     contracts.PricePoint
		)
		if err := rows.Scan(&asset, &p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		s := byAsset[asset]
		s.Asset = asset
		s.Points = append(s.Points, p)
		byAsset[asset] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return selectSeries(byAsset, assets, time.Time{}, time.Time{}), nil
}

// Assets lists stored asset ids
func (r *Repository) Assets(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT asset FROM price_history ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// SaveSeries upserts the points of validated series in one batch
func (r *Repository) SaveSeries(ctx context.Context, series []contracts.PriceSeries) (int, error) {
	query := `
		INSERT INTO price_history (asset, ts, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset, ts) DO UPDATE SET close = EXCLUDED.close
	`

	batch := &pgx.Batch{}
	for _, s := range series {
		if err := s.Validate(); err != nil {
			return 0, err
		}
		for _, p := range s.Points {
			batch.Queue(query, s.Asset, p.Time, p.Price)
		}
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert price row %d: %w", i, err)
		}
	}
	return batch.Len(), nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
