package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/woztorrentz/torrent-api/internal/models"
)

type SiteCheckRepository struct {
	db *sql.DB
}

func NewSiteCheckRepository(db *sql.DB) *SiteCheckRepository {
	return &SiteCheckRepository{db: db}
}

func (r *SiteCheckRepository) Insert(ctx context.Context, check models.SiteCheck) (int64, error) {
	var errText sql.NullString
	if check.Error != nil {
		errText = sql.NullString{String: *check.Error, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO site_checks (site_key, available, error, latency_ms, checked_at)
		VALUES (?, ?, ?, ?, ?)
	`, check.SiteKey, check.Available, errText, check.LatencyMS, check.CheckedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert site check: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("site check id: %w", err)
	}
	return id, nil
}

// LatestBySite returns the most recent check of every site that has one,
// keyed by site.
func (r *SiteCheckRepository) LatestBySite(ctx context.Context) (map[string]models.SiteCheck, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.site_key, c.available, c.error, c.latency_ms, c.checked_at
		FROM site_checks c
		WHERE c.id = (
			SELECT latest.id
			FROM site_checks latest
			WHERE latest.site_key = c.site_key
			ORDER BY latest.checked_at DESC, latest.id DESC
			LIMIT 1
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("list latest site checks: %w", err)
	}
	defer rows.Close()

	items := map[string]models.SiteCheck{}
	for rows.Next() {
		check, err := scanSiteCheck(rows)
		if err != nil {
			return nil, err
		}
		items[check.SiteKey] = check
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site checks: %w", err)
	}

	return items, nil
}

// Latest returns the most recent check of one site, or nil when it was never
// checked.
func (r *SiteCheckRepository) Latest(ctx context.Context, siteKey string) (*models.SiteCheck, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, site_key, available, error, latency_ms, checked_at
		FROM site_checks
		WHERE site_key = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT 1
	`, strings.ToLower(strings.TrimSpace(siteKey)))

	check, err := scanSiteCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *SiteCheckRepository) History(ctx context.Context, siteKey string, limit int) ([]models.SiteCheck, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_key, available, error, latency_ms, checked_at
		FROM site_checks
		WHERE site_key = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT ?
	`, strings.ToLower(strings.TrimSpace(siteKey)), limit)
	if err != nil {
		return nil, fmt.Errorf("list site check history: %w", err)
	}
	defer rows.Close()

	items := make([]models.SiteCheck, 0)
	for rows.Next() {
		check, err := scanSiteCheck(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site checks: %w", err)
	}

	return items, nil
}

// Prune keeps only the newest keep checks of every site.
func (r *SiteCheckRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM site_checks
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY site_key ORDER BY checked_at DESC, id DESC) AS position
				FROM site_checks
			)
			WHERE position > ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune site checks: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSiteCheck(row rowScanner) (models.SiteCheck, error) {
	var check models.SiteCheck
	var errText sql.NullString
	if err := row.Scan(
		&check.ID,
		&check.SiteKey,
		&check.Available,
		&errText,
		&check.LatencyMS,
		&check.CheckedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SiteCheck{}, err
		}
		return models.SiteCheck{}, fmt.Errorf("scan site check: %w", err)
	}
	if errText.Valid {
		check.Error = &errText.String
	}
	return check, nil
}
