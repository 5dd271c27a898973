package handler

import (
	"net/http"

	"github.com/vigilo-dev/vigilo/backend/internal/assigner"
)

func (h *Handler) OptimizeAssignments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShiftIDs     []int64           `json:"shiftIDs" validate:"required,min=1"`
		Objective    string            `json:"objective" validate:"omitempty,oneof=balanced cost quality coverage"`
		Notify       bool              `json:"notify"`
		AllowPartial bool              `json:"allowPartial"`
		Weights      *assigner.Weights `json:"weights"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	opts := assigner.Options{
		Objective:    assigner.Objective(req.Objective),
		Notify:       req.Notify,
		AllowPartial: req.AllowPartial,
	}
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			h.badRequest(w, r, err)
			return
		}
		opts.Weights = *req.Weights
	}

	report, err := h.assigner.Run(r.Context(), req.ShiftIDs, opts)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.successResponse(w, r, "智能派班完成", report)
}
