package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

const shiftSelectColumns = `
	sh.id, sh.site_id, sh.shift_type, sh.start_time, sh.end_time, sh.status,
	sh.is_urgent, sh.hourly_budget, sh.assigned_worker_id, sh.assignment_method,
	sh.assignment_score, sh.created_at, sh.version,
	si.id, si.name, si.address, si.latitude, si.longitude,
	si.service_level, si.risk_level, si.skills_mandatory, si.created_at, si.version,
	srs.skill
`

// scanShiftRows 将 shift 联表查询的多行结果组装为 shift 列表（含站点和所需技能）
func (r *Repository) scanShiftRows(rows *sql.Rows) ([]*domain.Shift, error) {
	shiftsMap := make(map[int64]*domain.Shift)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID               int64
			SiteID           int64
			ShiftType        string
			StartTime        time.Time
			EndTime          time.Time
			Status           string
			IsUrgent         bool
			HourlyBudget     float64
			AssignedWorkerID sql.NullInt64
			AssignmentMethod sql.NullString
			AssignmentScore  sql.NullFloat64
			CreatedAt        time.Time
			Version          int32

			SiteRowID       int64
			SiteName        string
			SiteAddress     string
			SiteLatitude    sql.NullFloat64
			SiteLongitude   sql.NullFloat64
			ServiceLevel    int32
			RiskLevel       int32
			SkillsMandatory bool
			SiteCreatedAt   time.Time
			SiteVersion     int32

			Skill sql.NullString
		}

		dst := []any{
			&row.ID, &row.SiteID, &row.ShiftType, &row.StartTime, &row.EndTime, &row.Status,
			&row.IsUrgent, &row.HourlyBudget, &row.AssignedWorkerID, &row.AssignmentMethod,
			&row.AssignmentScore, &row.CreatedAt, &row.Version,
			&row.SiteRowID, &row.SiteName, &row.SiteAddress, &row.SiteLatitude, &row.SiteLongitude,
			&row.ServiceLevel, &row.RiskLevel, &row.SkillsMandatory, &row.SiteCreatedAt, &row.SiteVersion,
			&row.Skill,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		shift, exists := shiftsMap[row.ID]
		if !exists {
			shift = &domain.Shift{
				ID:             row.ID,
				SiteID:         row.SiteID,
				ShiftType:      row.ShiftType,
				StartTime:      row.StartTime,
				EndTime:        row.EndTime,
				RequiredSkills: make([]string, 0),
				Status:         domain.ShiftStatus(row.Status),
				IsUrgent:       row.IsUrgent,
				HourlyBudget:   row.HourlyBudget,
				CreatedAt:      row.CreatedAt,
				Version:        row.Version,
				Site: &domain.Site{
					ID:              row.SiteRowID,
					Name:            row.SiteName,
					Address:         row.SiteAddress,
					ServiceLevel:    row.ServiceLevel,
					RiskLevel:       row.RiskLevel,
					SkillsMandatory: row.SkillsMandatory,
					CreatedAt:       row.SiteCreatedAt,
					Version:         row.SiteVersion,
				},
			}
			if row.AssignedWorkerID.Valid {
				shift.AssignedWorkerID = &row.AssignedWorkerID.Int64
			}
			if row.AssignmentMethod.Valid {
				shift.AssignmentMethod = &row.AssignmentMethod.String
			}
			if row.AssignmentScore.Valid {
				shift.AssignmentScore = &row.AssignmentScore.Float64
			}
			if row.SiteLatitude.Valid {
				shift.Site.Latitude = &row.SiteLatitude.Float64
			}
			if row.SiteLongitude.Valid {
				shift.Site.Longitude = &row.SiteLongitude.Float64
			}
			shiftsMap[row.ID] = shift
			order = append(order, row.ID)
		}

		if row.Skill.Valid {
			shift.RequiredSkills = append(shift.RequiredSkills, row.Skill.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	shifts := make([]*domain.Shift, 0, len(order))
	for _, id := range order {
		shifts = append(shifts, shiftsMap[id])
	}

	return shifts, nil
}

// GetShiftsByIDs 根据 ID 列表获取班次，未知或已删除的 ID 会被静默跳过
func (r *Repository) GetShiftsByIDs(ids []int64) ([]*domain.Shift, error) {
	if len(ids) == 0 {
		return []*domain.Shift{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `
		SELECT ` + shiftSelectColumns + `
		FROM shifts sh
		JOIN sites si ON sh.site_id = si.id
		LEFT JOIN shift_required_skills srs ON sh.id = srs.shift_id
		WHERE sh.id IN (` + strings.Join(placeholders, ", ") + `) AND sh.deleted_at IS NULL
		ORDER BY sh.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanShiftRows(rows)
}

func (r *Repository) GetShiftByID(id int64) (*domain.Shift, error) {
	shifts, err := r.GetShiftsByIDs([]int64{id})
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, sql.ErrNoRows
	}

	return shifts[0], nil
}

func (r *Repository) GetAllShifts() ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftSelectColumns + `
		FROM shifts sh
		JOIN sites si ON sh.site_id = si.id
		LEFT JOIN shift_required_skills srs ON sh.id = srs.shift_id
		WHERE sh.deleted_at IS NULL
		ORDER BY sh.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanShiftRows(rows)
}

// GetConfirmedShiftsInWindow 获取与给定时间窗口重叠的所有已确认班次
// 用于计算员工已提交的工作量和时间冲突
func (r *Repository) GetConfirmedShiftsInWindow(start, end time.Time) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftSelectColumns + `
		FROM shifts sh
		JOIN sites si ON sh.site_id = si.id
		LEFT JOIN shift_required_skills srs ON sh.id = srs.shift_id
		WHERE sh.status = 'confirmed'
			AND sh.assigned_worker_id IS NOT NULL
			AND sh.start_time < $2
			AND sh.end_time > $1
			AND sh.deleted_at IS NULL
		ORDER BY sh.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanShiftRows(rows)
}

func (r *Repository) CreateShift(shift *domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO shifts (site_id, shift_type, start_time, end_time, is_urgent, hourly_budget)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at, version
	`

	args := []any{shift.SiteID, shift.ShiftType, shift.StartTime, shift.EndTime, shift.IsUrgent, shift.HourlyBudget}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&shift.ID, &shift.Status, &shift.CreatedAt, &shift.Version); err != nil {
		return err
	}

	for _, skill := range shift.RequiredSkills {
		query := `INSERT INTO shift_required_skills (shift_id, skill) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, shift.ID, skill); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetSiteHistoryStats 统计站点同类班次的历史排班情况
func (r *Repository) GetSiteHistoryStats(siteID int64, shiftType string) (*domain.SiteHistoryStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COALESCE(AVG(assignment_score) FILTER (WHERE assignment_score IS NOT NULL), 0)
		FROM shifts
		WHERE site_id = $1 AND shift_type = $2 AND end_time < NOW() AND deleted_at IS NULL
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	stats := &domain.SiteHistoryStats{
		SiteID:    siteID,
		ShiftType: shiftType,
	}

	dst := []any{&stats.TotalShifts, &stats.StaffedShifts, &stats.AvgScore}
	if err := r.dbpool.QueryRowContext(ctx, query, siteID, shiftType).Scan(dst...); err != nil {
		return nil, err
	}

	if stats.TotalShifts > 0 {
		stats.AvgSuccessRate = float64(stats.StaffedShifts) / float64(stats.TotalShifts)
	}

	return stats, nil
}

// CommitAssignment 以乐观并发的方式确认一次派班
// 两个条件共同保证不会重复派班：
//  1. 班次必须仍处于 open 状态且版本未变（防止并发确认同一班次）
//  2. 员工在该时间段内不能已有其他已确认的班次（防止并发批次抢占同一员工）
func (r *Repository) CommitAssignment(shift *domain.Shift, workerID int64, score float64, method string) error {
	query := `
		UPDATE shifts
		SET
			assigned_worker_id = $1,
			assignment_method = $2,
			assignment_score = $3,
			status = 'confirmed',
			version = version + 1
		WHERE id = $4
			AND version = $5
			AND status = 'open'
			AND NOT EXISTS (
				SELECT 1 FROM shifts other
				WHERE other.assigned_worker_id = $1
					AND other.status = 'confirmed'
					AND other.id <> $4
					AND other.start_time < $7
					AND other.end_time > $6
			)
		RETURNING status, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{workerID, method, score, shift.ID, shift.Version, shift.StartTime, shift.EndTime}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&shift.Status, &shift.Version); err != nil {
		if err == sql.ErrNoRows {
			return ErrAssignmentConflict
		}
		return err
	}

	shift.AssignedWorkerID = &workerID
	shift.AssignmentMethod = &method
	shift.AssignmentScore = &score

	return nil
}
