package transport

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"madera-precisa/internal/cutplan"
	"madera-precisa/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxCutListBytes = 1 << 20

// CutPlanHandler nests uploaded cut lists onto stock sheets
type CutPlanHandler struct {
	planner cutplan.Planner
	logger  *zap.Logger
}

// NewCutPlanHandler creates a new CutPlanHandler using planner's sheet size and kerf by default
func NewCutPlanHandler(planner cutplan.Planner, logger *zap.Logger) *CutPlanHandler {
	return &CutPlanHandler{
		planner: planner,
		logger:  logger,
	}
}

// RegisterRoutes registers the cut plan routes
func (h *CutPlanHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Post("/api/admin/cut-plans", h.CreatePlan)
	})
}

// CreatePlan reads a CSV cut list from the body and returns the sheet layout.
// sheetWidth, sheetLength and kerf query parameters override the defaults.
func (h *CutPlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	planner, errs := h.plannerFor(r)
	if len(errs) > 0 {
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	parts, err := cutplan.ReadCSV(io.LimitReader(r.Body, maxCutListBytes))
	if err != nil {
		h.respondWithPlanError(w, err)
		return
	}

	plan, err := planner.Nest(parts)
	if err != nil {
		h.respondWithPlanError(w, err)
		return
	}

	h.logger.Info("Cut plan created",
		zap.Int("pieces", plan.Pieces),
		zap.Int("sheets", len(plan.Sheets)),
		zap.Float64("utilization", plan.Utilization),
	)
	middleware.RespondWithJSON(w, http.StatusOK, plan)
}

func (h *CutPlanHandler) plannerFor(r *http.Request) (cutplan.Planner, []middleware.ValidationError) {
	query := r.URL.Query()
	width, length, kerf := h.planner.SheetWidth, h.planner.SheetLength, h.planner.Kerf
	var errs []middleware.ValidationError

	parse := func(name string, target *float64, allowZero bool) {
		v := query.Get(name)
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !cutplan.Finite(f) || f < 0 || (f == 0 && !allowZero) {
			errs = append(errs, middleware.ValidationError{Field: name, Message: "Must be a positive number"})
			return
		}
		*target = f
	}
	parse("sheetWidth", &width, false)
	parse("sheetLength", &length, false)
	parse("kerf", &kerf, true)

	return cutplan.NewPlanner(width, length, kerf), errs
}

func (h *CutPlanHandler) respondWithPlanError(w http.ResponseWriter, err error) {
	if errors.Is(err, cutplan.ErrInvalidCSV) ||
		errors.Is(err, cutplan.ErrInvalidPart) ||
		errors.Is(err, cutplan.ErrPieceTooLarge) {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("Failed to create cut plan", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create cut plan")
}
