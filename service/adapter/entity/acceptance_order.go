package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// AcceptanceOrder records acceptance of delivered goods or work.
type AcceptanceOrder struct {
	Header
	Number         string          `json:"number"`
	OrderType      string          `json:"orderType"`
	Result         string          `json:"result"`
	AcceptedAmount decimal.Decimal `json:"acceptedAmount"`
}

func (a *AcceptanceOrder) Attributes() model.Attributes {
	return model.Attributes{
		"acceptance_no":   model.String(a.Number),
		"order_type":      model.String(a.OrderType),
		"result":          model.String(a.Result),
		"accepted_amount": model.Number(a.AcceptedAmount),
	}
}

func (a *AcceptanceOrder) Validate() adapter.Validation {
	if a.Result == "" {
		return adapter.Invalid("acceptance result is required")
	}
	return adapter.Valid()
}

func (a *AcceptanceOrder) Title() string {
	return fmt.Sprintf("Acceptance %s", a.Number)
}

func (a *AcceptanceOrder) Summary() string {
	return fmt.Sprintf("%s acceptance, result %s, amount %s", a.OrderType, a.Result, money(a.AcceptedAmount))
}

// NewAcceptanceOrderAdapter creates the acceptance order adapter.
func NewAcceptanceOrderAdapter(store dao.Service[string, AcceptanceOrder]) *adapter.Base[AcceptanceOrder, *AcceptanceOrder] {
	return adapter.NewBase[AcceptanceOrder, *AcceptanceOrder](TypeAcceptanceOrder, store)
}
