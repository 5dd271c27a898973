package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// InsertAssignmentAudit 写入一条派班审计记录，写入后不可修改
func (r *Repository) InsertAssignmentAudit(audit *domain.AssignmentAudit) error {
	constraints, err := json.Marshal(audit.Constraints)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assignment_audits (shift_id, worker_id, score, estimated_cost, method, justification, constraints)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{audit.ShiftID, audit.WorkerID, audit.Score, audit.EstimatedCost, audit.Method, audit.Justification, constraints}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&audit.ID, &audit.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAssignmentAuditsByShiftID(shiftID int64) ([]*domain.AssignmentAudit, error) {
	query := `
		SELECT id, worker_id, score, estimated_cost, method, justification, constraints, created_at
		FROM assignment_audits
		WHERE shift_id = $1
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audits := make([]*domain.AssignmentAudit, 0)
	for rows.Next() {
		audit := &domain.AssignmentAudit{
			ShiftID: shiftID,
		}

		var constraints []byte
		dst := []any{&audit.ID, &audit.WorkerID, &audit.Score, &audit.EstimatedCost, &audit.Method, &audit.Justification, &constraints, &audit.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(constraints, &audit.Constraints); err != nil {
			return nil, err
		}

		audits = append(audits, audit)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return audits, nil
}
