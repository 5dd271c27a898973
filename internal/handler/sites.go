package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

func (h *Handler) GetAllSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.repository.GetAllSites()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取站点列表成功", sites)
}

func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string   `json:"name" validate:"required"`
		Address         string   `json:"address" validate:"required"`
		Latitude        *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
		Longitude       *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
		ServiceLevel    int32    `json:"serviceLevel" validate:"required,gte=1,lte=5"`
		RiskLevel       int32    `json:"riskLevel" validate:"required,gte=1,lte=5"`
		SkillsMandatory bool     `json:"skillsMandatory"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	site := &domain.Site{
		Name:            req.Name,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ServiceLevel:    req.ServiceLevel,
		RiskLevel:       req.RiskLevel,
		SkillsMandatory: req.SkillsMandatory,
	}

	if err := h.repository.CreateSite(site); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "sites_name_key":
				h.badRequest(w, r, errors.New("站点名称已存在"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "站点创建成功", site)
}
