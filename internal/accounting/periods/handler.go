package periods

import (
	"log/slog"
	"net/http"

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

type createRequest struct {
	Name       string `json:"name" validate:"required,max=64"`
	FiscalYear int    `json:"fiscal_year" validate:"required,gte=1900,lte=9999"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type closeRequest struct {
	ExcludeDrafts bool `json:"exclude_drafts"`
}

type reopenRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	start, _ := shared.ParseDate(req.StartDate)
	end, _ := shared.ParseDate(req.EndDate)
	p, err := h.service.Create(r.Context(), CreatePeriodInput{
		Name:       req.Name,
		FiscalYear: req.FiscalYear,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req closeRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	res, err := h.service.Close(r.Context(), CloseInput{
		PeriodID:      id,
		Actor:         shared.ActorFromContext(r.Context()),
		ExcludeDrafts: req.ExcludeDrafts,
	})
	if err != nil {
		h.logger.Warn("close period", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reopenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Reopen(r.Context(), ReopenInput{
		PeriodID: id,
		Reason:   req.Reason,
		Actor:    shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Warn("reopen period", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	events, err := h.service.Events(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) IsOpen(w http.ResponseWriter, r *http.Request) {
	date, err := httpx.RequireDate(r, "date")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	open, err := h.service.IsOpen(r.Context(), date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"date": date.Format(shared.DateLayout), "is_open": open})
}
