package closing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/pharma-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type yearEndRequest struct {
	FiscalYear  int    `json:"fiscal_year" validate:"required,gte=1900,lte=9999"`
	ClosingDate string `json:"closing_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/year-end-closing", h.YearEnd)
}

func (h *Handler) YearEnd(w http.ResponseWriter, r *http.Request) {
	var req yearEndRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := Input{FiscalYear: req.FiscalYear, Actor: shared.ActorFromContext(r.Context())}
	if req.ClosingDate != "" {
		d, _ := shared.ParseDate(req.ClosingDate)
		in.ClosingDate = &d
	}
	res, err := h.service.PerformYearEndClosing(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
