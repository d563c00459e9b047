package journals

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type lineRequest struct {
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description" validate:"max=255"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PartnerID   *int64          `json:"partner_id"`
	DueDate     string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	BranchID    *int64          `json:"branch_id"`
	WarehouseID *int64          `json:"warehouse_id"`
}

type entryRequest struct {
	EntryDate    string        `json:"entry_date" validate:"required,datetime=2006-01-02"`
	Description  string        `json:"description" validate:"max=500"`
	SourceModule string        `json:"source_module"`
	Post         bool          `json:"post"`
	Lines        []lineRequest `json:"lines" validate:"dive"`
}

type validateRequest struct {
	Lines []lineRequest `json:"lines" validate:"dive"`
}

type reverseRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=500"`
}

func toLineInputs(lines []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		in := LineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			PartnerID:   l.PartnerID,
			BranchID:    l.BranchID,
			WarehouseID: l.WarehouseID,
		}
		if l.DueDate != "" {
			if due, err := internalShared.ParseDate(l.DueDate); err == nil {
				in.DueDate = &due
			}
		}
		out = append(out, in)
	}
	return out
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	var err error
	if filter.StartDate, err = httpx.QueryDate(r, "start_date"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.EndDate, err = httpx.QueryDate(r, "end_date"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.IsPosted, err = httpx.QueryBool(r, "is_posted"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if raw := r.URL.Query().Get("source_module"); raw != "" {
		module, perr := shared.ParseSourceModule(raw)
		if perr != nil {
			httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{perr.Error()}})
			return
		}
		filter.SourceModule = &module
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Validate(toLineInputs(req.Lines)))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := internalShared.ParseDate(req.EntryDate)
	var module shared.SourceModule
	if req.SourceModule != "" {
		parsed, err := shared.ParseSourceModule(req.SourceModule)
		if err != nil {
			httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{err.Error()}})
			return
		}
		module = parsed
	}
	res, err := h.service.Create(r.Context(), CreateInput{
		EntryDate:    date,
		Description:  req.Description,
		SourceModule: module,
		Post:         req.Post,
		ActorID:      internalShared.ActorFromContext(r.Context()).ID,
		Lines:        toLineInputs(req.Lines),
	})
	if err != nil {
		h.logger.Warn("create journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := internalShared.ParseDate(req.EntryDate)
	entry, err := h.service.UpdateDraft(r.Context(), id, UpdateInput{
		EntryDate:   date,
		Description: req.Description,
		Lines:       toLineInputs(req.Lines),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteDraft(r.Context(), id, internalShared.ActorFromContext(r.Context()).ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Post(r.Context(), id, internalShared.ActorFromContext(r.Context()).ID)
	if err != nil {
		h.logger.Warn("post journal", slog.Int64("journal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	var date *time.Time
	if req.Date != "" {
		d, _ := internalShared.ParseDate(req.Date)
		date = &d
	}
	entry, err := h.service.Reverse(r.Context(), ReverseInput{
		EntryID:     id,
		Date:        date,
		Description: req.Description,
		ActorID:     internalShared.ActorFromContext(r.Context()).ID,
	})
	if err != nil {
		h.logger.Warn("reverse journal", slog.Int64("journal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}
