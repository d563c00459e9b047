package adjustments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/countsheet"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Recorder counts posted adjustments.
type Recorder interface {
	AdjustmentPosted(reason string)
}

// Service stages stock adjustments and posts them through the cost layer
// and the journal engine.
type Service struct {
	repo     Repository
	stock    *costlayer.Service
	journals *journals.Service
	audit    internalShared.AuditPort
	metrics  Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, stock *costlayer.Service, journalSvc *journals.Service, audit internalShared.AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stock: stock, journals: journalSvc, audit: audit, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) WithMetrics(metrics Recorder) {
	s.metrics = metrics
}

// GenerateAdjustmentNumber reserves the next adjustment number.
func (s *Service) GenerateAdjustmentNumber(ctx context.Context) (string, error) {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.NextSequence(ctx, SequenceStockAdjustment)
		if err != nil {
			return err
		}
		number = FormatNumber(n)
		return nil
	})
	return number, err
}

// CurrentStockQuantity returns the on-hand quantity across all batches.
func (s *Service) CurrentStockQuantity(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error) {
	return s.stock.OnHand(ctx, costlayer.Key{ProductID: productID, WarehouseID: warehouseID})
}

func (s *Service) Get(ctx context.Context, id int64) (Adjustment, error) {
	return s.repo.GetAdjustment(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Adjustment, error) {
	return s.repo.ListAdjustments(ctx, filter)
}

type stagedLine struct {
	productID int64
	batch     string
	after     decimal.Decimal
	unitCost  *decimal.Decimal
}

// CreateManual stages an adjustment from target quantities. Items whose
// quantity would not change are rejected.
func (s *Service) CreateManual(ctx context.Context, in ManualInput) (Adjustment, error) {
	problems := checkHeader(in.WarehouseID, in.Date)
	if in.Reason == "" {
		problems = append(problems, "reason is required")
	} else if _, ok := ParseReason(string(in.Reason)); !ok {
		problems = append(problems, fmt.Sprintf("unknown reason %q", in.Reason))
	}
	if len(in.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	lines := make([]stagedLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, stagedLine{productID: it.ProductID, batch: strings.TrimSpace(it.BatchNumber), after: it.QuantityAfter, unitCost: it.UnitCost})
	}
	problems = append(problems, checkLines(lines)...)
	if len(problems) > 0 {
		return Adjustment{}, &internalShared.ValidationError{Errors: problems}
	}
	items, err := s.stage(ctx, in.WarehouseID, lines, false)
	if err != nil {
		return Adjustment{}, err
	}
	return s.insert(ctx, Adjustment{
		WarehouseID:    in.WarehouseID,
		AdjustmentDate: internalShared.DateOf(in.Date),
		Reason:         in.Reason,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedBy:      in.ActorID,
		Items:          items,
	})
}

// CreateFromCount stages a stock count. Lines that match the books are kept
// as counted with no change and never move stock.
func (s *Service) CreateFromCount(ctx context.Context, in CountInput) (Adjustment, error) {
	problems := checkHeader(in.WarehouseID, in.Date)
	if len(in.Lines) == 0 {
		problems = append(problems, "at least one counted line is required")
	}
	lines := make([]stagedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, stagedLine{productID: l.ProductID, batch: strings.TrimSpace(l.BatchNumber), after: l.CountedQty, unitCost: l.UnitCost})
	}
	problems = append(problems, checkLines(lines)...)
	if len(problems) > 0 {
		return Adjustment{}, &internalShared.ValidationError{Errors: problems}
	}
	items, err := s.stage(ctx, in.WarehouseID, lines, true)
	if err != nil {
		return Adjustment{}, err
	}
	return s.insert(ctx, Adjustment{
		WarehouseID:    in.WarehouseID,
		AdjustmentDate: internalShared.DateOf(in.Date),
		Reason:         ReasonStockCount,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedBy:      in.ActorID,
		Items:          items,
	})
}

// ImportCountSheet stages a stock count from an xlsx count sheet.
func (s *Service) ImportCountSheet(ctx context.Context, warehouseID int64, date time.Time, actorID int64, r io.Reader) (Adjustment, error) {
	rows, err := countsheet.Parse(r)
	if err != nil {
		return Adjustment{}, &internalShared.ValidationError{Errors: []string{err.Error()}}
	}
	lines := make([]CountLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, CountLine{
			ProductID:   row.ProductID,
			BatchNumber: row.BatchNumber,
			CountedQty:  row.CountedQty,
			UnitCost:    row.UnitCost,
		})
	}
	return s.CreateFromCount(ctx, CountInput{
		WarehouseID: warehouseID,
		Date:        date,
		Notes:       "imported count sheet",
		ActorID:     actorID,
		Lines:       lines,
	})
}

func checkHeader(warehouseID int64, date time.Time) []string {
	var problems []string
	if warehouseID <= 0 {
		problems = append(problems, "warehouse is required")
	}
	if date.IsZero() {
		problems = append(problems, "adjustment date is required")
	}
	return problems
}

func checkLines(lines []stagedLine) []string {
	var problems []string
	seen := make(map[string]bool, len(lines))
	batched := make(map[int64]bool)
	unbatched := make(map[int64]bool)
	for idx, l := range lines {
		n := idx + 1
		if l.productID <= 0 {
			problems = append(problems, fmt.Sprintf("item %d: product is required", n))
			continue
		}
		if l.after.IsNegative() {
			problems = append(problems, fmt.Sprintf("item %d: quantity cannot be negative", n))
		}
		if l.unitCost != nil && l.unitCost.IsNegative() {
			problems = append(problems, fmt.Sprintf("item %d: unit cost cannot be negative", n))
		}
		key := fmt.Sprintf("%d|%s", l.productID, l.batch)
		if seen[key] {
			problems = append(problems, fmt.Sprintf("item %d: product %d batch %q listed twice", n, l.productID, l.batch))
		}
		seen[key] = true
		if l.batch == "" {
			unbatched[l.productID] = true
		} else {
			batched[l.productID] = true
		}
		if batched[l.productID] && unbatched[l.productID] {
			problems = append(problems, fmt.Sprintf("item %d: product %d mixes batched and unbatched lines", n, l.productID))
		}
	}
	return problems
}

// stage reads on-hand per line and prices the difference. Decreases are
// estimated from the FIFO lots as they stand now and realised at posting.
func (s *Service) stage(ctx context.Context, warehouseID int64, lines []stagedLine, counted bool) ([]Item, error) {
	items := make([]Item, 0, len(lines))
	for idx, l := range lines {
		key := costlayer.Key{ProductID: l.productID, WarehouseID: warehouseID, BatchNumber: l.batch}
		before, err := s.stock.OnHand(ctx, key)
		if err != nil {
			return nil, err
		}
		item := Item{
			LineNo:         idx + 1,
			ProductID:      l.productID,
			BatchNumber:    l.batch,
			QuantityBefore: before,
			QuantityAfter:  l.after,
			QuantityDiff:   l.after.Sub(before),
			UnitCost:       decimal.Zero,
			TotalCostDiff:  decimal.Zero,
			Counted:        counted,
		}
		switch {
		case item.QuantityDiff.IsZero():
			if !counted {
				return nil, &internalShared.ValidationError{Errors: []string{fmt.Sprintf("item %d: product %d quantity is unchanged", idx+1, l.productID)}}
			}
			item.NoChange = true
			if l.unitCost != nil {
				item.UnitCost = *l.unitCost
			}
		case item.QuantityDiff.IsPositive():
			if l.unitCost == nil {
				return nil, &internalShared.MissingUnitCostError{ProductID: l.productID}
			}
			item.UnitCost = shared.Round(*l.unitCost)
			item.TotalCostDiff = shared.Round(item.QuantityDiff.Mul(item.UnitCost))
		default:
			preview, err := s.stock.Preview(ctx, costlayer.ConsumeInput{Key: key, Qty: item.QuantityDiff.Neg()})
			if err != nil {
				return nil, err
			}
			item.UnitCost = unitCostOf(preview)
			item.TotalCostDiff = preview.Cost.Neg()
		}
		items = append(items, item)
	}
	return items, nil
}

func unitCostOf(c costlayer.Consumption) decimal.Decimal {
	if c.Qty.IsZero() {
		return decimal.Zero
	}
	return c.Cost.DivRound(c.Qty, shared.AmountScale)
}

func (s *Service) insert(ctx context.Context, adj Adjustment) (Adjustment, error) {
	adj.Status = StatusDraft
	adj.CreatedAt = s.now()
	adj.TotalDifferenceQty, adj.TotalDifferenceValue = adj.Totals()
	var stored Adjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.NextSequence(ctx, SequenceStockAdjustment)
		if err != nil {
			return err
		}
		adj.AdjustmentNumber = FormatNumber(n)
		stored, err = tx.InsertAdjustment(ctx, adj)
		return err
	})
	if err != nil {
		return Adjustment{}, err
	}
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  adj.CreatedBy,
		Action:   "stock_adjustment.create",
		Entity:   "stock_adjustment",
		EntityID: strconv.FormatInt(stored.ID, 10),
		Meta: map[string]any{
			"adjustment_number": stored.AdjustmentNumber,
			"reason":            string(stored.Reason),
			"items":             len(stored.Items),
		},
		At: s.now(),
	})
	return stored, nil
}

// Post applies a draft adjustment: on-hand is re-checked against the staged
// quantities, increases become new lots, decreases consume FIFO and the net
// value is journalised. Any failure leaves stock, lots and the ledger as
// they were.
func (s *Service) Post(ctx context.Context, id, actorID int64) (PostResult, error) {
	var (
		result PostResult
		entry  *journals.JournalEntry
		reason Reason
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetAdjustmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch adj.Status {
		case StatusPosted:
			return &internalShared.AlreadyPostedError{Kind: "stock adjustment", Ref: adj.AdjustmentNumber}
		case StatusCancelled:
			return fmt.Errorf("stock adjustment %s is cancelled: %w", adj.AdjustmentNumber, internalShared.ErrInvalidStatus)
		}
		posting := adj.PostingItems()
		if len(posting) == 0 {
			return &internalShared.EmptyAdjustmentError{AdjustmentNumber: adj.AdjustmentNumber}
		}
		if err := lockProducts(ctx, tx, adj.WarehouseID, posting); err != nil {
			return err
		}
		for _, it := range posting {
			actual, err := s.stock.OnHandTx(ctx, tx, costlayer.Key{ProductID: it.ProductID, WarehouseID: adj.WarehouseID, BatchNumber: it.BatchNumber})
			if err != nil {
				return err
			}
			if !actual.Equal(it.QuantityBefore) {
				return &internalShared.StaleQuantityError{ProductID: it.ProductID, Expected: it.QuantityBefore, Actual: actual}
			}
		}

		now := s.now()
		realised := make(map[int]Item, len(posting))
		for _, it := range posting {
			if !it.QuantityDiff.IsPositive() {
				continue
			}
			if _, err := s.stock.ReceiveTx(ctx, tx, costlayer.ReceiveInput{
				ProductID:   it.ProductID,
				WarehouseID: adj.WarehouseID,
				BatchNumber: it.BatchNumber,
				Qty:         it.QuantityDiff,
				UnitCost:    it.UnitCost,
				ReceivedAt:  receivedAt(adj.AdjustmentDate, now),
				SourceRef:   adj.AdjustmentNumber,
			}); err != nil {
				return err
			}
			realised[it.LineNo] = it
		}
		for _, it := range posting {
			if !it.QuantityDiff.IsNegative() {
				continue
			}
			used, err := s.stock.ConsumeTx(ctx, tx, costlayer.ConsumeInput{
				Key:       costlayer.Key{ProductID: it.ProductID, WarehouseID: adj.WarehouseID, BatchNumber: it.BatchNumber},
				Qty:       it.QuantityDiff.Neg(),
				SourceRef: adj.AdjustmentNumber,
			})
			if err != nil {
				return err
			}
			it.UnitCost = unitCostOf(used)
			it.TotalCostDiff = used.Cost.Neg()
			realised[it.LineNo] = it
		}
		for i, it := range adj.Items {
			if r, ok := realised[it.LineNo]; ok {
				adj.Items[i] = r
			}
		}
		adj.TotalDifferenceQty, adj.TotalDifferenceValue = adj.Totals()

		if !adj.TotalDifferenceValue.IsZero() {
			lines, err := adjustmentLines(ctx, tx, adj)
			if err != nil {
				return err
			}
			created, err := s.journals.CreateTx(ctx, tx, journals.CreateInput{
				EntryDate:    adj.AdjustmentDate,
				Description:  fmt.Sprintf("Stock adjustment %s (%s)", adj.AdjustmentNumber, adj.Reason),
				SourceModule: shared.SourceInventoryAdjustment,
				SourceID:     uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("ADJ:%d", adj.ID))),
				Post:         true,
				ActorID:      actorID,
				Lines:        lines,
			})
			if err != nil {
				return err
			}
			entry = &created
			adj.JournalEntryID = &created.ID
			adj.JournalEntryNo = &created.EntryNo
		}
		adj.Status = StatusPosted
		adj.PostedAt = &now
		if actorID != 0 {
			adj.PostedBy = &actorID
		}
		if err := tx.SaveAdjustmentPosting(ctx, adj); err != nil {
			return err
		}
		reason = adj.Reason
		result = PostResult{
			AdjustmentNumber:     adj.AdjustmentNumber,
			JournalEntryID:       adj.JournalEntryID,
			JournalEntryNo:       adj.JournalEntryNo,
			TotalDifferenceQty:   adj.TotalDifferenceQty,
			TotalDifferenceValue: adj.TotalDifferenceValue,
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "stock adjustment post failed", slog.Int64("adjustment_id", id), slog.Any("error", err))
		return PostResult{}, err
	}
	if entry != nil && s.journals != nil {
		s.journals.AfterCommit(ctx, *entry)
	}
	if s.metrics != nil {
		s.metrics.AdjustmentPosted(string(reason))
	}
	meta := map[string]any{
		"adjustment_number": result.AdjustmentNumber,
		"difference_qty":    result.TotalDifferenceQty.String(),
		"difference_value":  result.TotalDifferenceValue.String(),
	}
	if result.JournalEntryNo != nil {
		meta["journal_entry_no"] = *result.JournalEntryNo
	}
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   "stock_adjustment.post",
		Entity:   "stock_adjustment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	return result, nil
}

// lockProducts takes the per-product locks in a fixed order.
func lockProducts(ctx context.Context, tx TxRepository, warehouseID int64, items []Item) error {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := tx.LockProduct(ctx, warehouseID, id); err != nil {
			return err
		}
	}
	return nil
}

// adjustmentLines builds the single line pair for the net value: a loss
// debits shrinkage and credits inventory, a gain the reverse.
func adjustmentLines(ctx context.Context, tx TxRepository, adj Adjustment) ([]journals.LineInput, error) {
	inventory, err := mappings.Resolve(ctx, tx, mappings.KeyInventoryAsset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mappings.KeyInventoryAsset, err)
	}
	amount := adj.TotalDifferenceValue.Abs()
	warehouse := adj.WarehouseID
	desc := fmt.Sprintf("%s %s", adj.AdjustmentNumber, adj.Reason)
	if adj.TotalDifferenceValue.IsNegative() {
		shrinkage, err := mappings.Resolve(ctx, tx, mappings.KeyInventoryShrinkage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mappings.KeyInventoryShrinkage, err)
		}
		return []journals.LineInput{
			{AccountID: shrinkage, Description: desc, Debit: amount, Credit: decimal.Zero, WarehouseID: &warehouse},
			{AccountID: inventory, Description: desc, Debit: decimal.Zero, Credit: amount, WarehouseID: &warehouse},
		}, nil
	}
	gain, err := mappings.Resolve(ctx, tx, mappings.KeyInventoryAdjustmentGain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mappings.KeyInventoryAdjustmentGain, err)
	}
	return []journals.LineInput{
		{AccountID: inventory, Description: desc, Debit: amount, Credit: decimal.Zero, WarehouseID: &warehouse},
		{AccountID: gain, Description: desc, Debit: decimal.Zero, Credit: amount, WarehouseID: &warehouse},
	}, nil
}

// receivedAt places a lot found by an adjustment on the adjustment date, so a
// backdated count layers into FIFO where the stock was found. The posting
// clock's time of day orders lots of the same date.
func receivedAt(date, now time.Time) time.Time {
	d := internalShared.DateOf(date)
	now = now.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
}

// Cancel voids a draft adjustment.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := tx.GetAdjustmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if adj.Status != StatusDraft {
			return fmt.Errorf("stock adjustment %s is %s: %w", adj.AdjustmentNumber, adj.Status, internalShared.ErrInvalidStatus)
		}
		number = adj.AdjustmentNumber
		return tx.MarkAdjustmentCancelled(ctx, id, s.now())
	})
	if err != nil {
		return err
	}
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   "stock_adjustment.cancel",
		Entity:   "stock_adjustment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"adjustment_number": number},
		At:       s.now(),
	})
	return nil
}
