package domain

type Action string

const (
	ActionAdd         Action = "add"
	ActionUpdatePrice Action = "update_price"
	ActionRemove      Action = "remove"
	ActionDelete      Action = "delete"
	ActionList        Action = "list"
	ActionSearch      Action = "search"
	ActionStock       Action = "stock"
	ActionIncomplete  Action = "incomplete"
	ActionUnknown     Action = "unknown"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAdd, ActionUpdatePrice, ActionRemove, ActionDelete, ActionList,
		ActionSearch, ActionStock, ActionIncomplete, ActionUnknown:
		return true
	}
	return false
}

const (
	SourceRules = "rules"
	SourceLLM   = "llm"
)

const (
	FieldProduct  = "product"
	FieldQuantity = "quantity"
	FieldPrice    = "price"
)

// ParsedCommand is the structured reading of one utterance. Optional fields
// are nil when the parser found nothing for them.
type ParsedCommand struct {
	Action         Action
	ProductKey     *string
	ProductDisplay string
	QuantityKg     *float64
	PricePerKg     *float64
	Confidence     float64
	Missing        []string
	RawText        string
	NormalizedText string
	Language       string
	Source         string
}

func (c ParsedCommand) Product() string {
	if c.ProductKey == nil {
		return ""
	}
	return *c.ProductKey
}

func (c ParsedCommand) display() string {
	if c.ProductDisplay != "" {
		return c.ProductDisplay
	}
	return c.Product()
}

// Operation is the closed set of inventory operations a command can turn into.
type Operation interface {
	isOperation()
}

type AddOp struct {
	Product     string
	DisplayName string
	QuantityKg  float64
	PricePerKg  float64
	Description string
	Category    string
}

type UpdatePriceOp struct {
	Product    string
	PricePerKg float64
}

type RemoveOp struct {
	Product    string
	QuantityKg float64
}

type DeleteOp struct {
	Product string
}

type ListOp struct{}

type SearchOp struct {
	Product string
}

// StockOp with an empty Product reports every item.
type StockOp struct {
	Product string
}

func (AddOp) isOperation()         {}
func (UpdatePriceOp) isOperation() {}
func (RemoveOp) isOperation()      {}
func (DeleteOp) isOperation()      {}
func (ListOp) isOperation()        {}
func (SearchOp) isOperation()      {}
func (StockOp) isOperation()       {}

// Operation converts the command into an executable operation. Commands that
// lack a field their action needs yield an *IncompleteError.
func (c ParsedCommand) Operation() (Operation, error) {
	product := c.Product()
	switch c.Action {
	case ActionAdd:
		var missing []string
		if product == "" {
			missing = append(missing, FieldProduct)
		}
		if c.QuantityKg == nil {
			missing = append(missing, FieldQuantity)
		}
		if c.PricePerKg == nil {
			missing = append(missing, FieldPrice)
		}
		if len(missing) > 0 {
			return nil, &IncompleteError{Action: ActionAdd, Product: product, Missing: missing}
		}
		return AddOp{
			Product:     product,
			DisplayName: c.display(),
			QuantityKg:  *c.QuantityKg,
			PricePerKg:  *c.PricePerKg,
		}, nil
	case ActionUpdatePrice:
		if missing := missingFields(product != "", c.PricePerKg != nil, FieldPrice); len(missing) > 0 {
			return nil, &IncompleteError{Action: c.Action, Product: product, Missing: missing}
		}
		return UpdatePriceOp{Product: product, PricePerKg: *c.PricePerKg}, nil
	case ActionRemove:
		if missing := missingFields(product != "", c.QuantityKg != nil, FieldQuantity); len(missing) > 0 {
			return nil, &IncompleteError{Action: c.Action, Product: product, Missing: missing}
		}
		return RemoveOp{Product: product, QuantityKg: *c.QuantityKg}, nil
	case ActionDelete:
		if product == "" {
			return nil, &IncompleteError{Action: c.Action, Missing: []string{FieldProduct}}
		}
		return DeleteOp{Product: product}, nil
	case ActionSearch:
		if product == "" {
			return nil, &IncompleteError{Action: c.Action, Missing: []string{FieldProduct}}
		}
		return SearchOp{Product: product}, nil
	case ActionList:
		return ListOp{}, nil
	case ActionStock:
		return StockOp{Product: product}, nil
	case ActionIncomplete:
		missing := c.Missing
		if len(missing) == 0 {
			missing = []string{FieldPrice}
		}
		return nil, &IncompleteError{Action: ActionAdd, Product: product, Missing: missing}
	default:
		return nil, ErrParseUnknown
	}
}

func missingFields(hasProduct, hasField bool, field string) []string {
	var missing []string
	if !hasProduct {
		missing = append(missing, FieldProduct)
	}
	if !hasField {
		missing = append(missing, field)
	}
	return missing
}
