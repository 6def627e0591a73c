package domain

import "time"

type Item struct {
	ID            string
	CanonicalName string
	DisplayName   string
	QuantityKg    float64
	PricePerKg    float64
	Description   string
	Category      string
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemPatch carries the fields an update replaces. Nil fields are left untouched.
type ItemPatch struct {
	DisplayName *string
	QuantityKg  *float64
	PricePerKg  *float64
	Description *string
	Category    *string
	UpdatedAt   time.Time
}

func (p ItemPatch) Empty() bool {
	return p.DisplayName == nil && p.QuantityKg == nil && p.PricePerKg == nil &&
		p.Description == nil && p.Category == nil
}

// Apply returns a copy of item with the patch applied.
func (p ItemPatch) Apply(item Item) Item {
	if p.DisplayName != nil {
		item.DisplayName = *p.DisplayName
	}
	if p.QuantityKg != nil {
		item.QuantityKg = *p.QuantityKg
	}
	if p.PricePerKg != nil {
		item.PricePerKg = *p.PricePerKg
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if !p.UpdatedAt.IsZero() {
		item.UpdatedAt = p.UpdatedAt
	}
	item.Version++
	return item
}
