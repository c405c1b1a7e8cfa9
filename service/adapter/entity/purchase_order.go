package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// PurchaseLine is one ordered item.
type PurchaseLine struct {
	Item      string          `json:"item"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// PurchaseOrder is a procurement order.
type PurchaseOrder struct {
	Header
	Number       string          `json:"number"`
	SupplierName string          `json:"supplierName"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Urgent       bool            `json:"urgent"`
	Lines        []PurchaseLine  `json:"lines"`
}

func (p *PurchaseOrder) Attributes() model.Attributes {
	return model.Attributes{
		"po_no":         model.String(p.Number),
		"supplier_name": model.String(p.SupplierName),
		"total_amount":  model.Number(p.TotalAmount),
		"urgent":        model.Bool(p.Urgent),
		"line_count":    model.Int(int64(len(p.Lines))),
	}
}

func (p *PurchaseOrder) Validate() adapter.Validation {
	if !p.TotalAmount.IsPositive() {
		return adapter.Invalid("purchase order amount must be greater than zero")
	}
	if len(p.Lines) == 0 {
		return adapter.Invalid("purchase order has no lines")
	}
	return adapter.Valid()
}

func (p *PurchaseOrder) Title() string {
	return fmt.Sprintf("Purchase order %s from %s", p.Number, p.SupplierName)
}

func (p *PurchaseOrder) Summary() string {
	return fmt.Sprintf("%d lines, total %s", len(p.Lines), money(p.TotalAmount))
}

// NewPurchaseOrderAdapter creates the purchase order adapter.
func NewPurchaseOrderAdapter(store dao.Service[string, PurchaseOrder]) *adapter.Base[PurchaseOrder, *PurchaseOrder] {
	return adapter.NewBase[PurchaseOrder, *PurchaseOrder](TypePurchaseOrder, store)
}
