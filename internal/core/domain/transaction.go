package domain

import "time"

type TransactionType string

const (
	TransactionAdd         TransactionType = "add"
	TransactionMerge       TransactionType = "merge"
	TransactionUpdatePrice TransactionType = "update_price"
	TransactionRemove      TransactionType = "remove"
	TransactionDelete      TransactionType = "delete"
)

type Transaction struct {
	ID             string
	ProductName    string
	Type           TransactionType
	QuantityChange float64
	PricePerKg     float64
	Language       string
	CreatedAt      time.Time
}
