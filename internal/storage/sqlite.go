package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"promo_engine/internal/filter"
	"promo_engine/internal/model"
	"promo_engine/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// DefaultFilters seeds the global config row on first boot.
var DefaultFilters = model.FilterConfig{
	Keywords: []string{"iphone", "celular", "cupom"},
	Channels: []string{"gafanhotopromocoes", "pelando", "cupomonline"},
}

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", withBusyTimeout(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func withBusyTimeout(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Exists reports whether a promotion with the given fingerprint is stored.
func (s *SQLite) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promotions WHERE id = ?`, id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check promotion: %w", err)
	}
	return count > 0, nil
}

// Insert stores a promotion if its ID is not taken and populates CapturedAt.
func (s *SQLite) Insert(ctx context.Context, p *model.Promotion) error {
	now := s.now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO promotions (id, titulo, preco, link, fonte, data_captura)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		p.ID, p.Title, p.Price, p.Link, p.Source, now,
	)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	p.CapturedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListRecent returns up to limit promotions, newest first, optionally
// restricted to titles containing titleQuery.
func (s *SQLite) ListRecent(ctx context.Context, limit int, titleQuery string) ([]model.Promotion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, titulo, preco, link, fonte, data_captura
		 FROM promotions
		 WHERE ? = '' OR titulo LIKE '%' || ? || '%' ESCAPE '\'
		 ORDER BY data_captura DESC, id
		 LIMIT ?`,
		titleQuery, likeEscaper.Replace(titleQuery), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var promos []model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

// likeEscaper makes LIKE wildcards in a title query match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DeleteOlderThan removes promotions captured more than age ago.
func (s *SQLite) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := s.now().UTC().Add(-age).Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM promotions WHERE data_captura < ?`, threshold,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old promotions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CurrentFilters loads the global filter row. A missing row is not an error.
func (s *SQLite) CurrentFilters(ctx context.Context) (model.FilterConfig, error) {
	var keywords, channels sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT keywords, channels FROM system_configs WHERE id = ?`, model.GlobalConfigID,
	).Scan(&keywords, &channels)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FilterConfig{}, nil
	}
	if err != nil {
		return model.FilterConfig{}, fmt.Errorf("load filters: %w", err)
	}
	return model.FilterConfig{
		Keywords: filter.Split(keywords.String),
		Channels: filter.Split(channels.String),
	}, nil
}

// EnsureFilterConfig creates the global row with defaults unless it already exists.
func (s *SQLite) EnsureFilterConfig(ctx context.Context, defaults model.FilterConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO system_configs (id, keywords, channels) VALUES (?, ?, ?)`,
		model.GlobalConfigID, filter.Join(defaults.Keywords), filter.Join(defaults.Channels),
	)
	if err != nil {
		return fmt.Errorf("seed filters: %w", err)
	}
	return nil
}

// SaveFilterConfig replaces the global filter row.
func (s *SQLite) SaveFilterConfig(ctx context.Context, cfg model.FilterConfig) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_configs (id, keywords, channels) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET keywords = excluded.keywords, channels = excluded.channels`,
		model.GlobalConfigID, filter.Join(cfg.Keywords), filter.Join(cfg.Channels),
	)
	if err != nil {
		return fmt.Errorf("save filters: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPromotion(row scannable) (model.Promotion, error) {
	var p model.Promotion
	var price sql.NullFloat64
	var captured any
	err := row.Scan(&p.ID, &p.Title, &price, &p.Link, &p.Source, &captured)
	if err != nil {
		return p, fmt.Errorf("scan promotion: %w", err)
	}
	if price.Valid {
		v := price.Float64
		p.Price = &v
	}
	p.CapturedAt = parseTimestamp(captured)
	return p, nil
}

// parseTimestamp accepts both raw text and the time.Time the driver produces
// for TIMESTAMP columns.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, _ := time.Parse(timeLayout, t)
		return parsed
	case []byte:
		parsed, _ := time.Parse(timeLayout, string(t))
		return parsed
	}
	return time.Time{}
}
