package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// ECN is an engineering change notice; approval makes it effective.
type ECN struct {
	Header
	Number             string          `json:"number"`
	Subject            string          `json:"subject"`
	Reason             string          `json:"reason"`
	ChangeType         string          `json:"changeType"`
	CostImpact         decimal.Decimal `json:"costImpact"`
	ScheduleImpactDays int             `json:"scheduleImpactDays"`
	EffectiveAt        *time.Time      `json:"effectiveAt,omitempty"`
}

func (e *ECN) Attributes() model.Attributes {
	return model.Attributes{
		"ecn_no":               model.String(e.Number),
		"change_type":          model.String(e.ChangeType),
		"cost_impact":          model.Number(e.CostImpact),
		"schedule_impact_days": model.Int(int64(e.ScheduleImpactDays)),
	}
}

func (e *ECN) Validate() adapter.Validation {
	if strings.TrimSpace(e.Reason) == "" {
		return adapter.Invalid("change reason is required")
	}
	return adapter.Valid()
}

func (e *ECN) Title() string {
	return fmt.Sprintf("ECN %s: %s", e.Number, e.Subject)
}

func (e *ECN) Summary() string {
	return fmt.Sprintf("%s change, cost impact %s, schedule impact %d days", e.ChangeType, money(e.CostImpact), e.ScheduleImpactDays)
}

// Approved makes the change effective.
func (e *ECN) Approved(_ *model.Instance, at time.Time) {
	if e.EffectiveAt == nil {
		e.EffectiveAt = &at
	}
}

// NewECNAdapter creates the ECN adapter.
func NewECNAdapter(store dao.Service[string, ECN]) *adapter.Base[ECN, *ECN] {
	return adapter.NewBase[ECN, *ECN](TypeECN, store)
}
