package ledger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	d, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return internalShared.DateOf(h.now()), nil
	}
	return *d, nil
}

func (h *Handler) rangeParams(r *http.Request) (time.Time, time.Time, error) {
	from, err := httpx.RequireDate(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := httpx.RequireDate(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (h *Handler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpx.QueryInt64(r, "account_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if accountID == nil {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"account_id is required"}})
		return
	}
	q := GLQuery{AccountID: *accountID}
	if q.From, err = httpx.QueryDate(r, "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if q.To, err = httpx.QueryDate(r, "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if q.BranchID, err = httpx.QueryInt64(r, "branch_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.GeneralLedger(r.Context(), q)
	if err != nil {
		h.logger.Warn("general ledger", slog.Int64("account_id", q.AccountID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := res.Check(); err != nil {
		h.logger.Error("trial balance check failed", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.IncomeStatement(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) CashFlowDirect(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.CashFlowDirect(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) CashFlowIndirect(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.CashFlowIndirect(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SupplierAging(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.SupplierAging(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
