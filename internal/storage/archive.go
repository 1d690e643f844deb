// Package storage mirrors retained price records into PostgreSQL for
// long-term archival beyond the rolling-history retention window.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// ErrNotConfigured indicates the archive pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	ensureSchemaSQL = `CREATE TABLE IF NOT EXISTS price_records (
        produto        TEXT        NOT NULL,
        tipo           TEXT        NOT NULL,
        moeda          TEXT        NOT NULL,
        valor          NUMERIC     NOT NULL,
        referente_a    DATE,
        effective_date DATE        NOT NULL,
        fonte_url      TEXT        NOT NULL,
        coletado_em    TIMESTAMPTZ NOT NULL,
        created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (produto, tipo, effective_date)
    );`

	upsertRecordSQL = `INSERT INTO price_records (
        produto,
        tipo,
        moeda,
        valor,
        referente_a,
        effective_date,
        fonte_url,
        coletado_em
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (produto, tipo, effective_date) DO UPDATE
    SET
        moeda       = EXCLUDED.moeda,
        valor       = EXCLUDED.valor,
        referente_a = EXCLUDED.referente_a,
        fonte_url   = EXCLUDED.fonte_url,
        coletado_em = EXCLUDED.coletado_em
    WHERE EXCLUDED.coletado_em >= price_records.coletado_em;`

	countRecordsSQL = `SELECT COUNT(*) FROM price_records;`
)

// PoolConfig encapsulates PostgreSQL connectivity.
type PoolConfig struct {
	DSN          string
	MaxOpenConns int
	MinIdleConns int
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MinIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MinIdleConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// RecordArchiver defines operations for the archival mirror.
type RecordArchiver interface {
	ArchiveRecords(ctx context.Context, records []market.Record) error
	CountRecords(ctx context.Context) (int64, error)
}

// Archive mirrors records into the price_records table.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wires a pgx pool into an Archive.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// Close releases the underlying pool resources.
func (a *Archive) Close() {
	if a == nil || a.pool == nil {
		return
	}
	a.pool.Close()
}

func (a *Archive) getPool() (*pgxpool.Pool, error) {
	if a == nil || a.pool == nil {
		return nil, ErrNotConfigured
	}
	return a.pool, nil
}

// EnsureSchema creates the archive table when absent.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, ensureSchemaSQL); execErr != nil {
		return fmt.Errorf("ensure archive schema: %w", execErr)
	}
	return nil
}

// ArchiveRecords upserts records keyed on their identity; an older
// collection never overwrites a newer archived row.
func (a *Archive) ArchiveRecords(ctx context.Context, records []market.Record) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}

	for _, r := range records {
		var referenteA any
		if r.ReferenteA != "" {
			referenteA = r.ReferenteA
		}

		_, execErr := pool.Exec(ctx, upsertRecordSQL,
			r.Produto,
			r.Tipo,
			r.Moeda,
			r.Valor.String(),
			referenteA,
			r.EffectiveDate(),
			r.FonteURL,
			r.ColetadoEm,
		)
		if execErr != nil {
			return fmt.Errorf("archive record %s/%s/%s: %w", r.Produto, r.Tipo, r.EffectiveDate(), execErr)
		}
	}
	return nil
}

// CountRecords counts archived rows.
func (a *Archive) CountRecords(ctx context.Context) (int64, error) {
	pool, err := a.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRecordsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count archived records: %w", scanErr)
	}
	return count, nil
}

var _ RecordArchiver = (*Archive)(nil)
