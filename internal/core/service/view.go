package service

import (
	"math"
	"time"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

const DefaultLowStockThresholdKg = 2.0

type PriceBreakdown struct {
	OneKg     float64 `json:"1kg"`
	HalfKg    float64 `json:"half_kg"`
	QuarterKg float64 `json:"quarter_kg"`
}

// NewPriceBreakdown rounds the half and quarter kg prices up to whole rupees.
func NewPriceBreakdown(pricePerKg float64) PriceBreakdown {
	return PriceBreakdown{
		OneKg:     pricePerKg,
		HalfKg:    math.Ceil(pricePerKg / 2),
		QuarterKg: math.Ceil(pricePerKg / 4),
	}
}

type ItemView struct {
	ID          string         `json:"id"`
	Product     string         `json:"product"`
	DisplayName string         `json:"display_name"`
	QuantityKg  float64        `json:"quantity"`
	PricePerKg  float64        `json:"price_per_kg"`
	Breakdown   PriceBreakdown `json:"breakdown"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	LowStock    bool           `json:"low_stock"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func newItemView(item domain.Item, lowStockKg float64) ItemView {
	return ItemView{
		ID:          item.ID,
		Product:     item.CanonicalName,
		DisplayName: item.DisplayName,
		QuantityKg:  item.QuantityKg,
		PricePerKg:  item.PricePerKg,
		Breakdown:   NewPriceBreakdown(item.PricePerKg),
		Description: item.Description,
		Category:    item.Category,
		LowStock:    item.QuantityKg <= lowStockKg,
		UpdatedAt:   item.UpdatedAt,
	}
}

type Inventory struct {
	Products       []ItemView `json:"products"`
	TotalProducts  int        `json:"total_products"`
	LowStockAlerts []string   `json:"low_stock_alerts"`
}

func newInventory(items []domain.Item, lowStockKg float64) Inventory {
	inv := Inventory{
		Products:       make([]ItemView, 0, len(items)),
		TotalProducts:  len(items),
		LowStockAlerts: []string{},
	}
	for _, item := range items {
		view := newItemView(item, lowStockKg)
		inv.Products = append(inv.Products, view)
		if view.LowStock {
			inv.LowStockAlerts = append(inv.LowStockAlerts, item.CanonicalName)
		}
	}
	return inv
}

type TransactionView struct {
	ID             string    `json:"id"`
	Product        string    `json:"product"`
	Type           string    `json:"type"`
	QuantityChange float64   `json:"quantity_change"`
	PricePerKg     float64   `json:"price_per_kg"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
}

func newTransactionView(tx domain.Transaction) TransactionView {
	return TransactionView{
		ID:             tx.ID,
		Product:        tx.ProductName,
		Type:           string(tx.Type),
		QuantityChange: tx.QuantityChange,
		PricePerKg:     tx.PricePerKg,
		Language:       tx.Language,
		CreatedAt:      tx.CreatedAt,
	}
}
