package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/core/parser"
)

type testEnv struct {
	svc     *CommandService
	repo    *mockInventoryRepo
	ledger  *Ledger
	history *mockTransactionLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMockInventoryRepo()
	ledger := NewLedger(100, nil)
	history := &mockTransactionLog{}
	svc := NewCommandService(parser.New(nil, nil, nil, nil), NewInventoryResolver(repo, newMockLocker(), nil), Options{
		Ledger:  ledger,
		Cache:   newMockCacheRepo(),
		History: history,
	})
	t.Cleanup(ledger.Close)
	return &testEnv{svc: svc, repo: repo, ledger: ledger, history: history}
}

func (e *testEnv) exec(t *testing.T, text, lang string) (CommandResponse, error) {
	t.Helper()
	return e.svc.Execute(context.Background(), CommandRequest{Text: text, Language: lang})
}

func (e *testEnv) drain() []domain.Transaction {
	var out []domain.Transaction
	for {
		select {
		case tx := <-e.ledger.Queue():
			out = append(out, tx)
		default:
			return out
		}
	}
}

func TestExecuteAddThenMerge(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "add 5 kg tomato at ₹50", "en")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "add", resp.Action)
	assert.Equal(t, "tomato", resp.ProductName)
	assert.Equal(t, OutcomeCreated, resp.Outcome)
	assert.Equal(t, "Product tomato 5 kg added at ₹50 per kg", resp.Message)
	require.NotNil(t, resp.Item)
	assert.Equal(t, PriceBreakdown{OneKg: 50, HalfKg: 25, QuarterKg: 13}, resp.Item.Breakdown)

	resp, err = env.exec(t, "add 3 kg tomato at ₹60", "en")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, resp.Outcome)
	assert.Equal(t, 8.0, resp.Item.QuantityKg)
	assert.Equal(t, 53.75, resp.Item.PricePerKg)
	assert.Equal(t, "Product tomato now 8 kg at ₹53.75 per kg", resp.Message)

	txs := env.drain()
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionAdd, txs[0].Type)
	assert.Equal(t, domain.TransactionMerge, txs[1].Type)
	assert.Equal(t, 3.0, txs[1].QuantityChange)
	assert.NotEmpty(t, txs[0].ID)
	assert.NotEqual(t, txs[0].ID, txs[1].ID)
}

func TestExecuteIncomplete(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "Add tomato 2 kg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParseIncomplete)
	assert.False(t, resp.Success)
	assert.Equal(t, "incomplete", resp.Action)
	assert.Equal(t, []string{domain.FieldPrice}, resp.Missing)
	assert.Equal(t, "To add tomato, please specify the price. Try: 'Add tomato 2 kg at ₹20 per kg'", resp.Message)
	assert.Empty(t, env.repo.items)
	assert.Empty(t, env.drain())
}

func TestExecuteRemoveWithoutQuantity(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "remove onion", "en")
	var incomplete *domain.IncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{domain.FieldQuantity}, resp.Missing)
	assert.Contains(t, resp.Message, "remove 2 kg onion")
}

func TestExecuteUnknown(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "what is going on", "en")
	assert.ErrorIs(t, err, domain.ErrParseUnknown)
	assert.Equal(t, "unknown", resp.Action)
	assert.Contains(t, resp.Message, "list all products")
}

func TestExecuteNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, text := range []string{"remove 2 kg onion", "update onion price to 40", "delete onion", "how much onion is left"} {
		resp, err := env.exec(t, text, "en")
		assert.ErrorIs(t, err, domain.ErrProductNotFound, text)
		assert.Equal(t, OutcomeNotFound, resp.Outcome, text)
		assert.Equal(t, "Product onion not found", resp.Message, text)
	}
	assert.Empty(t, env.drain())
}

func TestExecuteRemoveUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.exec(t, "add 3 kg onion at ₹30", "en")
	require.NoError(t, err)

	resp, err := env.exec(t, "remove 5 kg onion", "en")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, resp.Outcome)
	assert.Equal(t, 0.0, resp.Item.QuantityKg)
	assert.Equal(t, "Removed 3 kg of onion", resp.Message)

	resp, err = env.exec(t, "update onion price to 45", "en")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, resp.Outcome)
	assert.Equal(t, "Price updated for onion to ₹45 per kg", resp.Message)

	resp, err = env.exec(t, "delete onion", "en")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, resp.Outcome)

	txs := env.drain()
	require.Len(t, txs, 4)
	assert.Equal(t, domain.TransactionRemove, txs[1].Type)
	assert.Equal(t, -3.0, txs[1].QuantityChange)
	assert.Equal(t, domain.TransactionUpdatePrice, txs[2].Type)
	assert.Equal(t, domain.TransactionDelete, txs[3].Type)
}

func TestExecuteDuplicateRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := CommandRequest{RequestID: "req-1", Text: "add 2 kg rice at ₹60", Language: "en"}

	_, err := env.svc.Execute(ctx, req)
	require.NoError(t, err)

	resp, err := env.svc.Execute(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.False(t, resp.Success)

	item, err := env.svc.GetProduct(ctx, "rice")
	require.NoError(t, err)
	assert.Equal(t, 2.0, item.QuantityKg)
}

func TestExecuteFailedRequestCanBeRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.exec(t, "add 5 kg tomato at ₹50", "en")
	require.NoError(t, err)

	req := CommandRequest{RequestID: "req-retry", Text: "add 3 kg tomato at ₹60", Language: "en"}

	env.repo.failUpdate = true
	_, err = env.svc.Execute(ctx, req)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	env.repo.failUpdate = false
	resp, err := env.svc.Execute(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	item, err := env.svc.GetProduct(ctx, "tomato")
	require.NoError(t, err)
	assert.Equal(t, 8.0, item.QuantityKg)
	assert.Equal(t, 53.75, item.PricePerKg)

	// once applied, the same ID is a duplicate again
	_, err = env.svc.Execute(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestExecuteNotFoundReleasesRequestID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := CommandRequest{RequestID: "req-early", Text: "remove 1 kg onion", Language: "en"}

	_, err := env.svc.Execute(ctx, req)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = env.exec(t, "add 4 kg onion at ₹30", "en")
	require.NoError(t, err)

	resp, err := env.svc.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, resp.Outcome)
	assert.Equal(t, 3.0, resp.Item.QuantityKg)
}

func TestReadOnlyCommandsIgnoreRequestID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := CommandRequest{RequestID: "req-list", Text: "list all products", Language: "en"}

	_, err := env.svc.Execute(ctx, req)
	require.NoError(t, err)
	_, err = env.svc.Execute(ctx, req)
	require.NoError(t, err)
}

func TestReadOnlyCommandsDoNotMutate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.exec(t, "add 5 kg tomato at ₹50", "en")
	require.NoError(t, err)
	_, err = env.exec(t, "add 1 kg banana at ₹40", "en")
	require.NoError(t, err)
	env.drain()

	before, err := env.repo.ListAll(context.Background())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := env.exec(t, "list all products", "en")
		require.NoError(t, err)
		assert.Equal(t, "You have 2 products in inventory", resp.Message)
		assert.Len(t, resp.Items, 2)
		assert.Equal(t, []string{"banana"}, resp.LowStockAlerts)

		resp, err = env.exec(t, "find bananas", "en")
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "banana", resp.Items[0].Product)

		resp, err = env.exec(t, "how much tomato is left", "en")
		require.NoError(t, err)
		require.NotNil(t, resp.Item)
		assert.Equal(t, "tomato: 5 kg at ₹50 per kg", resp.Message)
	}

	after, err := env.repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, env.drain())
}

func TestExecuteSearchWithoutMatches(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "search mango", "en")
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, "No products matching mango", resp.Message)
}

func TestExecuteLowStockMessage(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "add 2 kg garlic at ₹200", "en")
	require.NoError(t, err)
	assert.True(t, resp.Item.LowStock)
	assert.True(t, strings.HasSuffix(resp.Message, " - Low stock alert"))

	resp, err = env.exec(t, "add 1 kg garlic at ₹200", "en")
	require.NoError(t, err)
	assert.False(t, resp.Item.LowStock)
}

func TestExecuteLocalizedMessage(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.exec(t, "प्याज 3 किलो 40 रुपये जोड़ो", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Language)
	assert.True(t, strings.HasPrefix(resp.Message, "onion 3 "), resp.Message)
	assert.Contains(t, resp.Message, "₹40")

	// Merges fall back to the add template when no localized merge text exists.
	resp, err = env.exec(t, "प्याज 1 किलो 40 रुपये जोड़ो", "hi")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, resp.Outcome)
	assert.True(t, strings.HasPrefix(resp.Message, "onion 1 "), resp.Message)

	txs := env.drain()
	require.Len(t, txs, 2)
	assert.Equal(t, "hi", txs[0].Language)
}

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateProduct(ctx, ProductInput{Name: "Tomatoes", QuantityKg: 4, PricePerKg: 30})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, "tomato", res.Item.Product)
	assert.Equal(t, "Tomatoes", res.Item.DisplayName)
	assert.Equal(t, "Vegetables", res.Item.Category)

	res, err = env.svc.CreateProduct(ctx, ProductInput{Name: "tomato", QuantityKg: 4, PricePerKg: 40})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, 35.0, res.Item.PricePerKg)

	price := 42.0
	qty := 6.0
	res, err = env.svc.UpdateProduct(ctx, "Tomato", ProductUpdate{PricePerKg: &price, QuantityKg: &qty})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, 42.0, res.Item.PricePerKg)
	assert.Equal(t, 6.0, res.Item.QuantityKg)

	_, err = env.svc.UpdateProduct(ctx, "tomato", ProductUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	inv, err := env.svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.TotalProducts)
	assert.Empty(t, inv.LowStockAlerts)

	res, err = env.svc.DeleteProduct(ctx, "tomato")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, res.Outcome)

	_, err = env.svc.GetProduct(ctx, "tomato")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = env.svc.CreateProduct(ctx, ProductInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	txs := env.drain()
	types := make([]domain.TransactionType, 0, len(txs))
	for _, tx := range txs {
		types = append(types, tx.Type)
	}
	assert.Equal(t, []domain.TransactionType{
		domain.TransactionAdd,
		domain.TransactionMerge,
		domain.TransactionUpdatePrice,
		domain.TransactionRemove,
		domain.TransactionDelete,
	}, types)
}

func TestTransactionsFromHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.exec(t, "add 5 kg tomato at ₹50", "en")
	require.NoError(t, err)
	_, err = env.exec(t, "remove 1 kg tomato", "en")
	require.NoError(t, err)

	for _, tx := range env.drain() {
		require.NoError(t, env.history.Append(ctx, tx))
	}

	views, err := env.svc.Transactions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "remove", views[0].Type)
	assert.Equal(t, -1.0, views[0].QuantityChange)
	assert.Equal(t, "add", views[1].Type)

	views, err = env.svc.Transactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestNewPriceBreakdown(t *testing.T) {
	assert.Equal(t, PriceBreakdown{OneKg: 45, HalfKg: 23, QuarterKg: 12}, NewPriceBreakdown(45))
	assert.Equal(t, PriceBreakdown{OneKg: 100, HalfKg: 50, QuarterKg: 25}, NewPriceBreakdown(100))
}
