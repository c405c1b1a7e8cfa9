package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// OutsourcingOrder is work contracted to an external vendor.
type OutsourcingOrder struct {
	Header
	Number      string          `json:"number"`
	VendorName  string          `json:"vendorName"`
	WorkType    string          `json:"workType"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (o *OutsourcingOrder) Attributes() model.Attributes {
	return model.Attributes{
		"order_no":     model.String(o.Number),
		"vendor_name":  model.String(o.VendorName),
		"work_type":    model.String(o.WorkType),
		"total_amount": model.Number(o.TotalAmount),
	}
}

func (o *OutsourcingOrder) Validate() adapter.Validation {
	if !o.TotalAmount.IsPositive() {
		return adapter.Invalid("outsourcing amount must be greater than zero")
	}
	if o.VendorName == "" {
		return adapter.Invalid("outsourcing vendor is required")
	}
	return adapter.Valid()
}

func (o *OutsourcingOrder) Title() string {
	return fmt.Sprintf("Outsourcing order %s to %s", o.Number, o.VendorName)
}

func (o *OutsourcingOrder) Summary() string {
	return fmt.Sprintf("%s work, total %s", o.WorkType, money(o.TotalAmount))
}

// NewOutsourcingOrderAdapter creates the outsourcing order adapter.
func NewOutsourcingOrderAdapter(store dao.Service[string, OutsourcingOrder]) *adapter.Base[OutsourcingOrder, *OutsourcingOrder] {
	return adapter.NewBase[OutsourcingOrder, *OutsourcingOrder](TypeOutsourcingOrder, store)
}
