package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
	"github.com/vigilo-dev/vigilo/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetAllWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repository.GetAllWorkers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工列表成功", workers)
}

func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username           string   `json:"username" validate:"required"`
		FullName           string   `json:"fullName" validate:"required"`
		Email              string   `json:"email" validate:"required,email"`
		Role               string   `json:"role" validate:"required,oneof=保安 调度员 管理员"`
		Skills             []string `json:"skills"`
		HourlyRate         float64  `json:"hourlyRate" validate:"gte=0"`
		HomeLatitude       *float64 `json:"homeLatitude" validate:"omitempty,gte=-90,lte=90"`
		HomeLongitude      *float64 `json:"homeLongitude" validate:"omitempty,gte=-180,lte=180"`
		PreferredDays      []int32  `json:"preferredDays" validate:"omitempty,dive,gte=1,lte=7"`
		PreferredStartHour *int32   `json:"preferredStartHour" validate:"omitempty,gte=0,lte=23"`
		PreferredEndHour   *int32   `json:"preferredEndHour" validate:"omitempty,gte=0,lte=23"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 生成随机密码
	password := utils.GenerateRandomPassword(h.config.NewWorker.PasswordLength)

	// 对密码进行哈希
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 插入员工到数据库中
	worker := &domain.Worker{
		Username:           req.Username,
		PasswordHash:       string(hashedPassword),
		FullName:           req.FullName,
		Email:              req.Email,
		Role:               domain.Role(req.Role),
		Skills:             req.Skills,
		HourlyRate:         req.HourlyRate,
		HomeLatitude:       req.HomeLatitude,
		HomeLongitude:      req.HomeLongitude,
		PreferredDays:      req.PreferredDays,
		PreferredStartHour: req.PreferredStartHour,
		PreferredEndHour:   req.PreferredEndHour,
	}

	if err := h.repository.CreateWorker(worker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "workers_username_key":
				h.badRequest(w, r, errors.New("用户名已存在"))
			case pgErr.ConstraintName == "workers_email_key":
				h.badRequest(w, r, errors.New("邮箱已存在"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 将初始密码邮件发送到消息队列
	mailMessage := &domain.NotificationMessage{
		Type: "create_worker",
		To:   worker.Email,
		Data: domain.CreateWorkerMailData{
			FullName: req.FullName,
			Username: req.Username,
			Password: password,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.notifier.Notify(ctx, mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 成功响应
	h.successResponse(w, r, "员工创建成功", worker)
}

func (h *Handler) GetWorkerInfo(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerInfoCtx).(*domain.Worker)
	h.successResponse(w, r, "获取员工信息成功", worker)
}

func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName           *string   `json:"fullName"`
		Email              *string   `json:"email" validate:"omitempty,email"`
		Role               *string   `json:"role" validate:"omitempty,oneof=保安 调度员 管理员"`
		IsActive           *bool     `json:"isActive"`
		Skills             *[]string `json:"skills"`
		HourlyRate         *float64  `json:"hourlyRate" validate:"omitempty,gte=0"`
		HomeLatitude       *float64  `json:"homeLatitude" validate:"omitempty,gte=-90,lte=90"`
		HomeLongitude      *float64  `json:"homeLongitude" validate:"omitempty,gte=-180,lte=180"`
		PreferredDays      *[]int32  `json:"preferredDays" validate:"omitempty,dive,gte=1,lte=7"`
		PreferredStartHour *int32    `json:"preferredStartHour" validate:"omitempty,gte=0,lte=23"`
		PreferredEndHour   *int32    `json:"preferredEndHour" validate:"omitempty,gte=0,lte=23"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	worker := r.Context().Value(WorkerInfoCtx).(*domain.Worker)

	if req.FullName != nil {
		worker.FullName = *req.FullName
	}
	if req.Email != nil {
		worker.Email = *req.Email
	}
	if req.Role != nil {
		worker.Role = domain.Role(*req.Role)
	}
	if req.IsActive != nil {
		worker.IsActive = *req.IsActive
	}
	if req.Skills != nil {
		worker.Skills = *req.Skills
	}
	if req.HourlyRate != nil {
		worker.HourlyRate = *req.HourlyRate
	}
	if req.HomeLatitude != nil {
		worker.HomeLatitude = req.HomeLatitude
	}
	if req.HomeLongitude != nil {
		worker.HomeLongitude = req.HomeLongitude
	}
	if req.PreferredDays != nil {
		worker.PreferredDays = *req.PreferredDays
	}
	if req.PreferredStartHour != nil {
		worker.PreferredStartHour = req.PreferredStartHour
	}
	if req.PreferredEndHour != nil {
		worker.PreferredEndHour = req.PreferredEndHour
	}

	if err := h.repository.UpdateWorker(worker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "workers_email_key":
				h.badRequest(w, r, errors.New("邮箱已存在"))
			case pgErr.ConstraintName == "workers_username_key":
				h.badRequest(w, r, errors.New("用户名已存在"))
			default:
				h.internalServerError(w, r, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新员工信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新员工信息成功", worker)
}
