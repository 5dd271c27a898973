package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
	"github.com/vigilo-dev/vigilo/backend/internal/utils"
)

func (h *Handler) GetAllShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.repository.GetAllShifts()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID         int64     `json:"siteID" validate:"required"`
		ShiftType      string    `json:"shiftType" validate:"required,oneof=day night event"`
		StartTime      time.Time `json:"startTime" validate:"required"`
		EndTime        time.Time `json:"endTime" validate:"required"`
		RequiredSkills []string  `json:"requiredSkills"`
		IsUrgent       bool      `json:"isUrgent"`
		HourlyBudget   float64   `json:"hourlyBudget" validate:"gte=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateShiftWindow(req.StartTime, req.EndTime); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 确认站点存在
	if _, err := h.repository.GetSiteByID(req.SiteID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "站点不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	shift := &domain.Shift{
		SiteID:         req.SiteID,
		ShiftType:      req.ShiftType,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		RequiredSkills: req.RequiredSkills,
		Status:         domain.ShiftStatusOpen,
		IsUrgent:       req.IsUrgent,
		HourlyBudget:   req.HourlyBudget,
	}

	if err := h.repository.CreateShift(shift); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次创建成功", shift)
}

func (h *Handler) GetShiftInfo(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftInfoCtx).(*domain.Shift)
	h.successResponse(w, r, "获取班次信息成功", shift)
}

func (h *Handler) GetShiftAudits(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftInfoCtx).(*domain.Shift)

	audits, err := h.repository.GetAssignmentAuditsByShiftID(shift.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取派班审计记录成功", audits)
}
