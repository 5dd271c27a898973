package repository

import (
	"database/sql"
	"errors"

	"github.com/vigilo-dev/vigilo/backend/internal/config"
)

// ErrAssignmentConflict 表示班次已被其他进程确认，或员工在该时间段已有确认的班次
var ErrAssignmentConflict = errors.New("派班冲突")

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}
