package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// GetAllWorkerStats 获取所有员工的历史表现统计
// 没有统计记录的员工不会出现在结果中，由调用方取中性默认值
func (r *Repository) GetAllWorkerStats() ([]*domain.WorkerStats, error) {
	query := `
		SELECT worker_id, attendance_rate, punctuality_rate, quality_score, client_satisfaction
		FROM worker_stats
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*domain.WorkerStats, 0)
	for rows.Next() {
		var row struct {
			WorkerID           int64
			AttendanceRate     sql.NullFloat64
			PunctualityRate    sql.NullFloat64
			QualityScore       sql.NullFloat64
			ClientSatisfaction sql.NullFloat64
		}

		dst := []any{&row.WorkerID, &row.AttendanceRate, &row.PunctualityRate, &row.QualityScore, &row.ClientSatisfaction}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		st := &domain.WorkerStats{WorkerID: row.WorkerID}
		if row.AttendanceRate.Valid {
			st.AttendanceRate = &row.AttendanceRate.Float64
		}
		if row.PunctualityRate.Valid {
			st.PunctualityRate = &row.PunctualityRate.Float64
		}
		if row.QualityScore.Valid {
			st.QualityScore = &row.QualityScore.Float64
		}
		if row.ClientSatisfaction.Valid {
			st.ClientSatisfaction = &row.ClientSatisfaction.Float64
		}
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetWorkerSiteAffinities 统计每个员工在各站点历史上被确认过多少次班次
// 用于偏好分的计算
func (r *Repository) GetWorkerSiteAffinities() ([]*domain.WorkerSiteAffinity, error) {
	query := `
		SELECT assigned_worker_id, site_id, COUNT(*)
		FROM shifts
		WHERE status = 'confirmed' AND assigned_worker_id IS NOT NULL
		GROUP BY assigned_worker_id, site_id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	affinities := make([]*domain.WorkerSiteAffinity, 0)
	for rows.Next() {
		affinity := &domain.WorkerSiteAffinity{}
		if err := rows.Scan(&affinity.WorkerID, &affinity.SiteID, &affinity.Assignments); err != nil {
			return nil, err
		}
		affinities = append(affinities, affinity)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return affinities, nil
}
