package adjustments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

const maxCountSheetBytes = 10 << 20

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type manualItemRequest struct {
	ProductID     int64            `json:"product_id" validate:"required,gt=0"`
	BatchNumber   string           `json:"batch_number" validate:"max=64"`
	QuantityAfter decimal.Decimal  `json:"quantity_after"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
}

type manualRequest struct {
	WarehouseID int64               `json:"warehouse_id" validate:"required,gt=0"`
	Date        string              `json:"adjustment_date" validate:"required,datetime=2006-01-02"`
	Reason      string              `json:"reason" validate:"required"`
	Notes       string              `json:"notes" validate:"max=1000"`
	Items       []manualItemRequest `json:"items" validate:"required,min=1,dive"`
}

type countLineRequest struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	BatchNumber string           `json:"batch_number" validate:"max=64"`
	CountedQty  decimal.Decimal  `json:"counted_qty"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
}

type countRequest struct {
	WarehouseID int64              `json:"warehouse_id" validate:"required,gt=0"`
	Date        string             `json:"count_date" validate:"required,datetime=2006-01-02"`
	Notes       string             `json:"notes" validate:"max=1000"`
	Lines       []countLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) GenerateNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.service.GenerateAdjustmentNumber(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"adjustment_number": number})
}

func (h *Handler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reason, ok := ParseReason(req.Reason)
	if !ok {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"unknown reason " + strconv.Quote(req.Reason)}})
		return
	}
	date, _ := internalShared.ParseDate(req.Date)
	items := make([]ManualItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ManualItem{ProductID: it.ProductID, BatchNumber: it.BatchNumber, QuantityAfter: it.QuantityAfter, UnitCost: it.UnitCost})
	}
	adj, err := h.service.CreateManual(r.Context(), ManualInput{
		WarehouseID: req.WarehouseID,
		Date:        date,
		Reason:      reason,
		Notes:       req.Notes,
		ActorID:     internalShared.ActorFromContext(r.Context()).ID,
		Items:       items,
	})
	if err != nil {
		h.logger.Warn("create stock adjustment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (h *Handler) CreateCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, _ := internalShared.ParseDate(req.Date)
	lines := make([]CountLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, CountLine{ProductID: l.ProductID, BatchNumber: l.BatchNumber, CountedQty: l.CountedQty, UnitCost: l.UnitCost})
	}
	adj, err := h.service.CreateFromCount(r.Context(), CountInput{
		WarehouseID: req.WarehouseID,
		Date:        date,
		Notes:       req.Notes,
		ActorID:     internalShared.ActorFromContext(r.Context()).ID,
		Lines:       lines,
	})
	if err != nil {
		h.logger.Warn("create stock count", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (h *Handler) ImportCount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCountSheetBytes)
	if err := r.ParseMultipartForm(maxCountSheetBytes); err != nil {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"invalid multipart form: " + err.Error()}})
		return
	}
	warehouseID, err := strconv.ParseInt(r.FormValue("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"warehouse_id must be a positive integer"}})
		return
	}
	date, err := internalShared.ParseDate(r.FormValue("count_date"))
	if err != nil {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"count_date: " + err.Error()}})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"file is required"}})
		return
	}
	defer func() { _ = file.Close() }()
	adj, err := h.service.ImportCountSheet(r.Context(), warehouseID, date, internalShared.ActorFromContext(r.Context()).ID, file)
	if err != nil {
		h.logger.Warn("import count sheet", slog.Int64("warehouse_id", warehouseID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	var err error
	if filter.WarehouseID, err = httpx.QueryInt64(r, "warehouse_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.From, err = httpx.QueryDate(r, "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = httpx.QueryDate(r, "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := Status(raw)
		filter.Status = &st
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
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
	adj, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Post(r.Context(), id, internalShared.ActorFromContext(r.Context()).ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Cancel(r.Context(), id, internalShared.ActorFromContext(r.Context()).ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
