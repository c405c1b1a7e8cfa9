package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// SalesInvoice is an outgoing invoice.
type SalesInvoice struct {
	Header
	Number       string          `json:"number"`
	CustomerName string          `json:"customerName"`
	InvoiceType  string          `json:"invoiceType"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	TaxAmount    decimal.Decimal `json:"taxAmount"`
}

func (s *SalesInvoice) Attributes() model.Attributes {
	return model.Attributes{
		"invoice_no":    model.String(s.Number),
		"customer_name": model.String(s.CustomerName),
		"invoice_type":  model.String(s.InvoiceType),
		"total_amount":  model.Number(s.TotalAmount),
		"tax_amount":    model.Number(s.TaxAmount),
	}
}

func (s *SalesInvoice) Validate() adapter.Validation {
	if !s.TotalAmount.IsPositive() {
		return adapter.Invalid("invoice total must be greater than zero")
	}
	if s.TaxAmount.IsNegative() || s.TaxAmount.GreaterThan(s.TotalAmount) {
		return adapter.Invalid("invoice tax %s exceeds total %s", money(s.TaxAmount), money(s.TotalAmount))
	}
	return adapter.Valid()
}

func (s *SalesInvoice) Title() string {
	return fmt.Sprintf("Sales invoice %s to %s", s.Number, s.CustomerName)
}

func (s *SalesInvoice) Summary() string {
	return fmt.Sprintf("%s invoice, total %s, tax %s", s.InvoiceType, money(s.TotalAmount), money(s.TaxAmount))
}

// NewSalesInvoiceAdapter creates the sales invoice adapter.
func NewSalesInvoiceAdapter(store dao.Service[string, SalesInvoice]) *adapter.Base[SalesInvoice, *SalesInvoice] {
	return adapter.NewBase[SalesInvoice, *SalesInvoice](TypeSalesInvoice, store)
}
