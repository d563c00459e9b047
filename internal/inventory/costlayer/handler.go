package costlayer

import (
	"log/slog"
	"net/http"
	"strings"

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

func (h *Handler) Stock(w http.ResponseWriter, r *http.Request) {
	product, err := httpx.QueryInt64(r, "product_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse, err := httpx.QueryInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if product == nil || warehouse == nil {
		httpx.RespondError(w, &internalShared.ValidationError{Errors: []string{"product_id and warehouse_id are required"}})
		return
	}
	key := Key{ProductID: *product, WarehouseID: *warehouse, BatchNumber: strings.TrimSpace(r.URL.Query().Get("batch_number"))}
	qty, err := h.service.OnHand(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id":   key.ProductID,
		"warehouse_id": key.WarehouseID,
		"batch_number": key.BatchNumber,
		"quantity":     qty,
	})
}

func (h *Handler) Valuation(w http.ResponseWriter, r *http.Request) {
	warehouse, err := httpx.QueryInt64(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var id int64
	if warehouse != nil {
		id = *warehouse
	}
	res, err := h.service.Valuation(r.Context(), id)
	if err != nil {
		h.logger.Error("inventory valuation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
