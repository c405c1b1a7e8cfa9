package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// Contract is a customer contract; approval signs it.
type Contract struct {
	Header
	Number         string          `json:"number"`
	CustomerName   string          `json:"customerName"`
	ContractType   string          `json:"contractType"`
	ContractAmount decimal.Decimal `json:"contractAmount"`
	DurationMonths int             `json:"durationMonths"`
	SignedAt       *time.Time      `json:"signedAt,omitempty"`
}

func (c *Contract) Attributes() model.Attributes {
	return model.Attributes{
		"contract_no":     model.String(c.Number),
		"customer_name":   model.String(c.CustomerName),
		"contract_type":   model.String(c.ContractType),
		"contract_amount": model.Number(c.ContractAmount),
		"duration_months": model.Int(int64(c.DurationMonths)),
	}
}

func (c *Contract) Validate() adapter.Validation {
	if !c.ContractAmount.IsPositive() {
		return adapter.Invalid("contract amount must be greater than zero")
	}
	if c.CustomerName == "" {
		return adapter.Invalid("contract customer is required")
	}
	return adapter.Valid()
}

func (c *Contract) Title() string {
	return fmt.Sprintf("Contract %s with %s", c.Number, c.CustomerName)
}

func (c *Contract) Summary() string {
	return fmt.Sprintf("%s contract, amount %s, %d months", c.ContractType, money(c.ContractAmount), c.DurationMonths)
}

// Approved records the signing date.
func (c *Contract) Approved(_ *model.Instance, at time.Time) {
	if c.SignedAt == nil {
		c.SignedAt = &at
	}
}

// NewContractAdapter creates the contract adapter.
func NewContractAdapter(store dao.Service[string, Contract]) *adapter.Base[Contract, *Contract] {
	return adapter.NewBase[Contract, *Contract](TypeContract, store)
}
