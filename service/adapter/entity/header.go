// Package entity holds the business records routed through approval flows and
// their adapters: quotes, contracts, sales invoices, engineering change notices,
// projects, timesheets, purchase orders, outsourcing orders and acceptance orders.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/service/adapter"
)

// Business types
const (
	TypeQuote            = "quote"
	TypeContract         = "contract"
	TypeSalesInvoice     = "sales_invoice"
	TypeECN              = "ecn"
	TypeProject          = "project"
	TypeTimesheet        = "timesheet"
	TypePurchaseOrder    = "purchase_order"
	TypeOutsourcingOrder = "outsourcing_order"
	TypeAcceptanceOrder  = "acceptance_order"
)

// Header carries the fields every business record shares.
type Header struct {
	ID        string         `json:"id" yaml:"id"`
	Status    adapter.Status `json:"status" yaml:"status"`
	CreatedBy string         `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

func (h *Header) GetID() string { return h.ID }

func (h *Header) GetStatus() adapter.Status {
	if h.Status == "" {
		return adapter.StatusDraft
	}
	return h.Status
}

func (h *Header) SetStatus(status adapter.Status) { h.Status = status }

// Field exposes header fields to List filters.
func (h *Header) Field(name string) (string, bool) {
	switch name {
	case "id":
		return h.ID, true
	case "status":
		return string(h.GetStatus()), true
	case "createdby":
		return h.CreatedBy, true
	}
	return "", false
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
