package ledger

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/general", h.GeneralLedger)
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/cash-flow/direct", h.CashFlowDirect)
	r.Get("/cash-flow/indirect", h.CashFlowIndirect)
	r.Get("/supplier-aging", h.SupplierAging)
}
