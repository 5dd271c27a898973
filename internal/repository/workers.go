package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// scanWorkerRows 将 worker 联表查询的多行结果组装为 worker 列表
// 查询的列顺序必须是：worker 的基本字段、skill、preferred_day
func (r *Repository) scanWorkerRows(rows *sql.Rows) ([]*domain.Worker, error) {
	workersMap := make(map[int64]*domain.Worker)
	order := make([]int64, 0)
	skillSeen := make(map[int64]map[string]bool)
	daySeen := make(map[int64]map[int32]bool)

	for rows.Next() {
		var row struct {
			ID                 int64
			Username           string
			PasswordHash       string
			FullName           string
			Email              string
			Role               string
			IsActive           bool
			HourlyRate         float64
			HomeLatitude       sql.NullFloat64
			HomeLongitude      sql.NullFloat64
			PreferredStartHour sql.NullInt32
			PreferredEndHour   sql.NullInt32
			CreatedAt          time.Time
			Version            int32

			Skill sql.NullString
			Day   sql.NullInt32
		}

		dst := []any{
			&row.ID,
			&row.Username,
			&row.PasswordHash,
			&row.FullName,
			&row.Email,
			&row.Role,
			&row.IsActive,
			&row.HourlyRate,
			&row.HomeLatitude,
			&row.HomeLongitude,
			&row.PreferredStartHour,
			&row.PreferredEndHour,
			&row.CreatedAt,
			&row.Version,
			&row.Skill,
			&row.Day,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		worker, exists := workersMap[row.ID]
		if !exists {
			worker = &domain.Worker{
				ID:            row.ID,
				Username:      row.Username,
				PasswordHash:  row.PasswordHash,
				FullName:      row.FullName,
				Email:         row.Email,
				Role:          domain.Role(row.Role),
				IsActive:      row.IsActive,
				HourlyRate:    row.HourlyRate,
				Skills:        make([]string, 0),
				PreferredDays: make([]int32, 0),
				CreatedAt:     row.CreatedAt,
				Version:       row.Version,
			}
			if row.HomeLatitude.Valid {
				worker.HomeLatitude = &row.HomeLatitude.Float64
			}
			if row.HomeLongitude.Valid {
				worker.HomeLongitude = &row.HomeLongitude.Float64
			}
			if row.PreferredStartHour.Valid {
				worker.PreferredStartHour = &row.PreferredStartHour.Int32
			}
			if row.PreferredEndHour.Valid {
				worker.PreferredEndHour = &row.PreferredEndHour.Int32
			}
			workersMap[row.ID] = worker
			order = append(order, row.ID)
			skillSeen[row.ID] = make(map[string]bool)
			daySeen[row.ID] = make(map[int32]bool)
		}

		// 联表会产生笛卡尔积，需要去重
		if row.Skill.Valid && !skillSeen[row.ID][row.Skill.String] {
			skillSeen[row.ID][row.Skill.String] = true
			worker.Skills = append(worker.Skills, row.Skill.String)
		}
		if row.Day.Valid && !daySeen[row.ID][row.Day.Int32] {
			daySeen[row.ID][row.Day.Int32] = true
			worker.PreferredDays = append(worker.PreferredDays, row.Day.Int32)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	workers := make([]*domain.Worker, 0, len(order))
	for _, id := range order {
		workers = append(workers, workersMap[id])
	}

	return workers, nil
}

const workerSelectColumns = `
	w.id, w.username, w.password_hash, w.full_name, w.email, w.role, w.is_active,
	w.hourly_rate, w.home_latitude, w.home_longitude,
	w.preferred_start_hour, w.preferred_end_hour, w.created_at, w.version,
	ws.skill, wpd.day
`

func (r *Repository) GetWorkerByID(id int64) (*domain.Worker, error) {
	query := `
		SELECT ` + workerSelectColumns + `
		FROM workers w
		LEFT JOIN worker_skills ws ON w.id = ws.worker_id
		LEFT JOIN worker_preferred_days wpd ON w.id = wpd.worker_id
		WHERE w.id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers, err := r.scanWorkerRows(rows)
	if err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, sql.ErrNoRows
	}

	return workers[0], nil
}

func (r *Repository) GetWorkerByUsername(username string) (*domain.Worker, error) {
	query := `
		SELECT ` + workerSelectColumns + `
		FROM workers w
		LEFT JOIN worker_skills ws ON w.id = ws.worker_id
		LEFT JOIN worker_preferred_days wpd ON w.id = wpd.worker_id
		WHERE w.username = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers, err := r.scanWorkerRows(rows)
	if err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, sql.ErrNoRows
	}

	return workers[0], nil
}

func (r *Repository) GetAllWorkers() ([]*domain.Worker, error) {
	query := `
		SELECT ` + workerSelectColumns + `
		FROM workers w
		LEFT JOIN worker_skills ws ON w.id = ws.worker_id
		LEFT JOIN worker_preferred_days wpd ON w.id = wpd.worker_id
		ORDER BY w.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanWorkerRows(rows)
}

// GetActiveWorkers 获取所有在职且未被软删除的员工
func (r *Repository) GetActiveWorkers() ([]*domain.Worker, error) {
	query := `
		SELECT ` + workerSelectColumns + `
		FROM workers w
		LEFT JOIN worker_skills ws ON w.id = ws.worker_id
		LEFT JOIN worker_preferred_days wpd ON w.id = wpd.worker_id
		WHERE w.is_active = TRUE AND w.deleted_at IS NULL
		ORDER BY w.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanWorkerRows(rows)
}

func (r *Repository) CreateWorker(worker *domain.Worker) error {
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
		INSERT INTO workers (username, password_hash, full_name, email, role, hourly_rate,
			home_latitude, home_longitude, preferred_start_hour, preferred_end_hour)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, is_active, created_at, version
	`

	args := []any{
		worker.Username, worker.PasswordHash, worker.FullName, worker.Email, worker.Role,
		worker.HourlyRate, worker.HomeLatitude, worker.HomeLongitude,
		worker.PreferredStartHour, worker.PreferredEndHour,
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&worker.ID, &worker.IsActive, &worker.CreatedAt, &worker.Version); err != nil {
		return err
	}

	for _, skill := range worker.Skills {
		query := `INSERT INTO worker_skills (worker_id, skill) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, worker.ID, skill); err != nil {
			return err
		}
	}

	for _, day := range worker.PreferredDays {
		query := `INSERT INTO worker_preferred_days (worker_id, day) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, worker.ID, day); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateWorker(worker *domain.Worker) error {
	query := `
		UPDATE workers
		SET
			password_hash = $1,
			email = $2,
			role = $3,
			is_active = $4,
			hourly_rate = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING username, full_name, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{worker.PasswordHash, worker.Email, worker.Role, worker.IsActive, worker.HourlyRate, worker.ID, worker.Version}
	dst := []any{&worker.Username, &worker.FullName, &worker.CreatedAt, &worker.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}
