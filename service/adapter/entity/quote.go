package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// Quote is a sales quotation.
type Quote struct {
	Header
	Number        string          `json:"number"`
	CustomerName  string          `json:"customerName"`
	CustomerLevel string          `json:"customerLevel"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	DiscountRate  decimal.Decimal `json:"discountRate"`
}

func (q *Quote) Attributes() model.Attributes {
	return model.Attributes{
		"quote_no":       model.String(q.Number),
		"customer_name":  model.String(q.CustomerName),
		"customer_level": model.String(q.CustomerLevel),
		"currency":       model.String(q.Currency),
		"total_amount":   model.Number(q.TotalAmount),
		"discount_rate":  model.Number(q.DiscountRate),
	}
}

func (q *Quote) Validate() adapter.Validation {
	if !q.TotalAmount.IsPositive() {
		return adapter.Invalid("quote amount must be greater than zero")
	}
	if q.DiscountRate.IsNegative() || q.DiscountRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return adapter.Invalid("discount rate %s is out of range [0, 1)", q.DiscountRate)
	}
	return adapter.Valid()
}

func (q *Quote) Title() string {
	return fmt.Sprintf("Quote %s for %s", q.Number, q.CustomerName)
}

func (q *Quote) Summary() string {
	return fmt.Sprintf("amount %s %s, discount %s%%", money(q.TotalAmount), q.Currency, q.DiscountRate.Shift(2).String())
}

// NewQuoteAdapter creates the quote adapter.
func NewQuoteAdapter(store dao.Service[string, Quote]) *adapter.Base[Quote, *Quote] {
	return adapter.NewBase[Quote, *Quote](TypeQuote, store)
}
