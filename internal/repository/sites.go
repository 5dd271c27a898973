package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

func (r *Repository) CreateSite(site *domain.Site) error {
	query := `
		INSERT INTO sites (name, address, latitude, longitude, service_level, risk_level, skills_mandatory)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{site.Name, site.Address, site.Latitude, site.Longitude, site.ServiceLevel, site.RiskLevel, site.SkillsMandatory}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&site.ID, &site.CreatedAt, &site.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetSiteByID(id int64) (*domain.Site, error) {
	query := `
		SELECT name, address, latitude, longitude, service_level, risk_level, skills_mandatory, created_at, version
		FROM sites WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	site := &domain.Site{
		ID: id,
	}

	var latitude, longitude sql.NullFloat64
	dst := []any{&site.Name, &site.Address, &latitude, &longitude, &site.ServiceLevel, &site.RiskLevel, &site.SkillsMandatory, &site.CreatedAt, &site.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if latitude.Valid {
		site.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		site.Longitude = &longitude.Float64
	}

	return site, nil
}

func (r *Repository) GetAllSites() ([]*domain.Site, error) {
	query := `
		SELECT id, name, address, latitude, longitude, service_level, risk_level, skills_mandatory, created_at, version
		FROM sites ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make([]*domain.Site, 0)
	for rows.Next() {
		site := &domain.Site{}
		var latitude, longitude sql.NullFloat64
		dst := []any{&site.ID, &site.Name, &site.Address, &latitude, &longitude, &site.ServiceLevel, &site.RiskLevel, &site.SkillsMandatory, &site.CreatedAt, &site.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if latitude.Valid {
			site.Latitude = &latitude.Float64
		}
		if longitude.Valid {
			site.Longitude = &longitude.Float64
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sites, nil
}
