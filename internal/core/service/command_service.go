package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/core/parser"
	"github.com/rl1809/voice-inventory/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
	releaseTimeout          = time.Second
)

type CommandRequest struct {
	RequestID string
	Text      string
	Language  string
}

type CommandResponse struct {
	Success        bool       `json:"success"`
	Action         string     `json:"action"`
	ProductName    string     `json:"product_name,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Price          *float64   `json:"price,omitempty"`
	Confidence     float64    `json:"confidence"`
	Language       string     `json:"language"`
	Source         string     `json:"source"`
	NormalizedText string     `json:"normalized_text"`
	Outcome        Outcome    `json:"outcome,omitempty"`
	Message        string     `json:"message"`
	Missing        []string   `json:"missing,omitempty"`
	Item           *ItemView  `json:"item,omitempty"`
	Items          []ItemView `json:"items,omitempty"`
	LowStockAlerts []string   `json:"low_stock_alerts,omitempty"`
}

type ProductInput struct {
	Name        string
	QuantityKg  float64
	PricePerKg  float64
	Description string
	Category    string
	Language    string
}

// ProductUpdate carries the fields a direct edit replaces. Nil fields are kept.
type ProductUpdate struct {
	QuantityKg  *float64
	PricePerKg  *float64
	Description *string
	Category    *string
}

type ProductResult struct {
	Outcome Outcome  `json:"outcome"`
	Item    ItemView `json:"product"`
	Message string   `json:"message"`
}

type Options struct {
	// Ledger receives a transaction per mutation. Optional.
	Ledger *Ledger
	// Cache enables request_id idempotency. Optional.
	Cache port.CacheRepository
	// History serves the transaction listing. Optional.
	History             port.TransactionLog
	LowStockThresholdKg float64
	Logger              *zap.Logger
}

// CommandService executes spoken or typed commands and direct product edits
// against the inventory.
type CommandService struct {
	parser   *parser.Parser
	resolver *InventoryResolver
	ledger   *Ledger
	cache    port.CacheRepository
	history  port.TransactionLog
	lowStock float64
	log      *zap.Logger
}

func NewCommandService(p *parser.Parser, resolver *InventoryResolver, opts Options) *CommandService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LowStockThresholdKg <= 0 {
		opts.LowStockThresholdKg = DefaultLowStockThresholdKg
	}
	return &CommandService{
		parser:   p,
		resolver: resolver,
		ledger:   opts.Ledger,
		cache:    opts.Cache,
		history:  opts.History,
		lowStock: opts.LowStockThresholdKg,
		log:      opts.Logger,
	}
}

// Execute parses text and applies the resulting operation. The response is
// populated even when an error is returned so callers can show the message.
func (s *CommandService) Execute(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	cmd := s.parser.Parse(ctx, req.Text, req.Language)
	resp := CommandResponse{
		Action:         string(cmd.Action),
		ProductName:    cmd.Product(),
		Quantity:       cmd.QuantityKg,
		Price:          cmd.PricePerKg,
		Confidence:     cmd.Confidence,
		Language:       cmd.Language,
		Source:         cmd.Source,
		NormalizedText: cmd.NormalizedText,
	}

	op, err := cmd.Operation()
	if err != nil {
		var incomplete *domain.IncompleteError
		if errors.As(err, &incomplete) {
			resp.Missing = incomplete.Missing
			resp.Message = incompleteMessage(string(incomplete.Action), incomplete.Product, incomplete.Missing)
		} else {
			resp.Message = message(cmd.Language, msgUnknown)
		}
		return resp, err
	}

	idemKey := ""
	if isMutation(op) && req.RequestID != "" && s.cache != nil {
		idemKey = "command:" + req.RequestID
		ok, err := s.cache.SetIdempotency(ctx, idemKey)
		if err != nil {
			resp.Message = "inventory temporarily unavailable"
			return resp, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			resp.Message = message(cmd.Language, msgDuplicate)
			return resp, ErrDuplicateRequest
		}
	}

	err = s.dispatch(ctx, op, cmd.Language, &resp)
	if err != nil && idemKey != "" {
		s.releaseIdempotency(ctx, idemKey)
	}
	switch {
	case err == nil:
		resp.Success = true
	case errors.Is(err, domain.ErrProductNotFound):
		resp.Outcome = OutcomeNotFound
		resp.Message = message(cmd.Language, msgProductNotFound, "product", cmd.Product())
	case errors.Is(err, domain.ErrStoreUnavailable):
		resp.Message = "inventory temporarily unavailable"
	default:
		resp.Message = err.Error()
	}

	s.log.Info("command executed",
		zap.String("action", resp.Action),
		zap.String("product", resp.ProductName),
		zap.String("language", resp.Language),
		zap.String("source", resp.Source),
		zap.Float64("confidence", resp.Confidence),
		zap.Bool("success", resp.Success),
	)
	return resp, err
}

// releaseIdempotency frees the request ID of a command that changed nothing,
// so the client can retry it.
func (s *CommandService) releaseIdempotency(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.cache.ReleaseIdempotency(ctx, key); err != nil {
		s.log.Warn("release idempotency key failed", zap.String("key", key), zap.Error(err))
	}
}

func isMutation(op domain.Operation) bool {
	switch op.(type) {
	case domain.AddOp, domain.UpdatePriceOp, domain.RemoveOp, domain.DeleteOp:
		return true
	}
	return false
}

func (s *CommandService) dispatch(ctx context.Context, op domain.Operation, lang string, resp *CommandResponse) error {
	switch op := op.(type) {
	case domain.AddOp:
		if op.Category == "" {
			op.Category = s.parser.Category(op.Product)
		}
		res, msg, err := s.add(ctx, op, lang)
		if err != nil {
			return err
		}
		s.fillResult(resp, res, msg)

	case domain.UpdatePriceOp:
		res, err := s.resolver.UpdatePrice(ctx, op)
		if err != nil {
			return err
		}
		s.record(ctx, domain.Transaction{
			ProductName: op.Product,
			Type:        domain.TransactionUpdatePrice,
			PricePerKg:  op.PricePerKg,
			Language:    lang,
		})
		s.fillResult(resp, res, message(lang, msgPriceUpdated,
			"product", res.Item.DisplayName, "price", formatNumber(res.Item.PricePerKg)))

	case domain.RemoveOp:
		res, err := s.resolver.Remove(ctx, op)
		if err != nil {
			return err
		}
		removed := subtractQuantity(res.Previous.QuantityKg, res.Item.QuantityKg)
		s.record(ctx, domain.Transaction{
			ProductName:    op.Product,
			Type:           domain.TransactionRemove,
			QuantityChange: -removed,
			PricePerKg:     res.Item.PricePerKg,
			Language:       lang,
		})
		s.fillResult(resp, res, message(lang, msgQuantityRemoved,
			"product", res.Item.DisplayName, "quantity", formatNumber(removed)))

	case domain.DeleteOp:
		res, err := s.resolver.Delete(ctx, op)
		if err != nil {
			return err
		}
		s.record(ctx, domain.Transaction{
			ProductName:    op.Product,
			Type:           domain.TransactionDelete,
			QuantityChange: -res.Item.QuantityKg,
			PricePerKg:     res.Item.PricePerKg,
			Language:       lang,
		})
		resp.Outcome = res.Outcome
		resp.Message = message(lang, msgProductDeleted, "product", res.Item.DisplayName)

	case domain.ListOp:
		items, err := s.resolver.List(ctx)
		if err != nil {
			return err
		}
		inv := newInventory(items, s.lowStock)
		resp.Items = inv.Products
		resp.LowStockAlerts = inv.LowStockAlerts
		resp.Message = message(lang, msgProductsListed, "count", fmt.Sprint(inv.TotalProducts))

	case domain.SearchOp:
		items, err := s.resolver.List(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if matchesSearch(item, op.Product) {
				resp.Items = append(resp.Items, newItemView(item, s.lowStock))
			}
		}
		if len(resp.Items) == 0 {
			resp.Message = message(lang, msgSearchEmpty, "product", op.Product)
		} else {
			resp.Message = message(lang, msgSearchFound, "count", fmt.Sprint(len(resp.Items)), "product", op.Product)
		}

	case domain.StockOp:
		if op.Product == "" {
			items, err := s.resolver.List(ctx)
			if err != nil {
				return err
			}
			inv := newInventory(items, s.lowStock)
			resp.Items = inv.Products
			resp.LowStockAlerts = inv.LowStockAlerts
			resp.Message = message(lang, msgStockSummary,
				"count", fmt.Sprint(inv.TotalProducts), "low", fmt.Sprint(len(inv.LowStockAlerts)))
			return nil
		}
		item, err := s.resolver.Get(ctx, op.Product)
		if err != nil {
			return err
		}
		view := newItemView(item, s.lowStock)
		resp.Item = &view
		resp.Message = s.withLowStock(lang, view, message(lang, msgProductFound,
			"product", item.DisplayName,
			"quantity", formatNumber(item.QuantityKg),
			"price", formatNumber(item.PricePerKg)))

	default:
		return fmt.Errorf("unsupported operation %T", op)
	}
	return nil
}

// add runs an AddOp and records it in the ledger. It returns the message to
// show for the outcome.
func (s *CommandService) add(ctx context.Context, op domain.AddOp, lang string) (Result, string, error) {
	res, err := s.resolver.Add(ctx, op)
	if err != nil {
		return Result{}, "", err
	}

	txType := domain.TransactionAdd
	if res.Outcome == OutcomeMerged {
		txType = domain.TransactionMerge
	}
	s.record(ctx, domain.Transaction{
		ProductName:    op.Product,
		Type:           txType,
		QuantityChange: op.QuantityKg,
		PricePerKg:     op.PricePerKg,
		Language:       lang,
	})

	name := res.Item.DisplayName
	_, localized := messages[lang][msgProductMerged]
	var msg string
	if res.Outcome == OutcomeMerged && (localized || lang == "") {
		msg = message(lang, msgProductMerged,
			"product", name,
			"quantity", formatNumber(res.Item.QuantityKg),
			"price", formatNumber(res.Item.PricePerKg))
	} else {
		msg = message(lang, msgProductAdded,
			"product", name,
			"quantity", formatNumber(op.QuantityKg),
			"price", formatNumber(res.Item.PricePerKg))
	}
	return res, s.withLowStock(lang, newItemView(res.Item, s.lowStock), msg), nil
}

func (s *CommandService) fillResult(resp *CommandResponse, res Result, msg string) {
	view := newItemView(res.Item, s.lowStock)
	resp.Outcome = res.Outcome
	resp.Item = &view
	resp.Message = msg
}

func (s *CommandService) withLowStock(lang string, view ItemView, msg string) string {
	if !view.LowStock {
		return msg
	}
	return msg + " - " + message(lang, msgLowStock)
}

func matchesSearch(item domain.Item, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(item.CanonicalName, term) ||
		strings.Contains(strings.ToLower(item.DisplayName), term) ||
		strings.EqualFold(item.Category, term)
}

// record hands tx to the ledger. A failure is logged and never fails the command.
func (s *CommandService) record(ctx context.Context, tx domain.Transaction) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, tx); err != nil {
		s.log.Warn("failed to queue transaction",
			zap.String("product", tx.ProductName),
			zap.String("type", string(tx.Type)),
			zap.Error(err),
		)
	}
}

// CreateProduct adds a product directly, merging into existing stock the
// same way a spoken add does.
func (s *CommandService) CreateProduct(ctx context.Context, in ProductInput) (ProductResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ProductResult{}, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if in.QuantityKg < 0 || in.PricePerKg < 0 {
		return ProductResult{}, fmt.Errorf("%w: quantity and price must not be negative", domain.ErrInvalidInput)
	}

	canonical := s.parser.Canonical(name)
	op := domain.AddOp{
		Product:     canonical,
		DisplayName: name,
		QuantityKg:  in.QuantityKg,
		PricePerKg:  in.PricePerKg,
		Description: in.Description,
		Category:    in.Category,
	}
	if op.Category == "" {
		op.Category = s.parser.Category(canonical)
	}

	res, msg, err := s.add(ctx, op, in.Language)
	if err != nil {
		return ProductResult{}, err
	}
	return ProductResult{Outcome: res.Outcome, Item: newItemView(res.Item, s.lowStock), Message: msg}, nil
}

func (s *CommandService) UpdateProduct(ctx context.Context, name string, upd ProductUpdate) (ProductResult, error) {
	patch := domain.ItemPatch{
		QuantityKg:  upd.QuantityKg,
		PricePerKg:  upd.PricePerKg,
		Description: upd.Description,
		Category:    upd.Category,
	}
	if patch.Empty() {
		return ProductResult{}, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}

	canonical := s.parser.Canonical(name)
	res, err := s.resolver.Patch(ctx, canonical, patch)
	if err != nil {
		return ProductResult{}, err
	}

	if upd.PricePerKg != nil {
		s.record(ctx, domain.Transaction{
			ProductName: canonical,
			Type:        domain.TransactionUpdatePrice,
			PricePerKg:  *upd.PricePerKg,
			Language:    parser.LanguageEnglish,
		})
	}
	if upd.QuantityKg != nil && res.Previous != nil {
		delta := quantityDelta(res.Previous.QuantityKg, *upd.QuantityKg)
		if delta != 0 {
			txType := domain.TransactionAdd
			if delta < 0 {
				txType = domain.TransactionRemove
			}
			s.record(ctx, domain.Transaction{
				ProductName:    canonical,
				Type:           txType,
				QuantityChange: delta,
				PricePerKg:     res.Item.PricePerKg,
				Language:       parser.LanguageEnglish,
			})
		}
	}

	return ProductResult{
		Outcome: res.Outcome,
		Item:    newItemView(res.Item, s.lowStock),
		Message: fmt.Sprintf("Product %s updated", res.Item.DisplayName),
	}, nil
}

func (s *CommandService) DeleteProduct(ctx context.Context, name string) (ProductResult, error) {
	canonical := s.parser.Canonical(name)
	res, err := s.resolver.Delete(ctx, domain.DeleteOp{Product: canonical})
	if err != nil {
		return ProductResult{}, err
	}
	s.record(ctx, domain.Transaction{
		ProductName:    canonical,
		Type:           domain.TransactionDelete,
		QuantityChange: -res.Item.QuantityKg,
		PricePerKg:     res.Item.PricePerKg,
		Language:       parser.LanguageEnglish,
	})
	return ProductResult{
		Outcome: res.Outcome,
		Item:    newItemView(res.Item, s.lowStock),
		Message: message("en", msgProductDeleted, "product", res.Item.DisplayName),
	}, nil
}

func (s *CommandService) GetProduct(ctx context.Context, name string) (ItemView, error) {
	item, err := s.resolver.Get(ctx, s.parser.Canonical(name))
	if err != nil {
		return ItemView{}, err
	}
	return newItemView(item, s.lowStock), nil
}

func (s *CommandService) ListProducts(ctx context.Context) (Inventory, error) {
	items, err := s.resolver.List(ctx)
	if err != nil {
		return Inventory{}, err
	}
	return newInventory(items, s.lowStock), nil
}

// Transactions returns the most recent ledger entries, newest first.
func (s *CommandService) Transactions(ctx context.Context, limit int) ([]TransactionView, error) {
	if s.history == nil {
		return []TransactionView{}, nil
	}
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	txs, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, newTransactionView(tx))
	}
	return views, nil
}
