package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// Timesheet is an employee's hours for a period; approval locks it.
type Timesheet struct {
	Header
	EmployeeID    string          `json:"employeeId"`
	PeriodStart   time.Time       `json:"periodStart"`
	PeriodEnd     time.Time       `json:"periodEnd"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	Locked        bool            `json:"locked"`
}

// PeriodDays returns the inclusive number of days covered.
func (t *Timesheet) PeriodDays() int {
	if t.PeriodEnd.Before(t.PeriodStart) {
		return 0
	}
	return int(t.PeriodEnd.Sub(t.PeriodStart).Hours()/24) + 1
}

func (t *Timesheet) Attributes() model.Attributes {
	return model.Attributes{
		"employee_id":    model.String(t.EmployeeID),
		"total_hours":    model.Number(t.TotalHours),
		"overtime_hours": model.Number(t.OvertimeHours),
		"period_days":    model.Int(int64(t.PeriodDays())),
	}
}

func (t *Timesheet) Validate() adapter.Validation {
	if t.Locked {
		return adapter.Invalid("timesheet is locked")
	}
	if !t.TotalHours.IsPositive() {
		return adapter.Invalid("timesheet has no hours")
	}
	limit := decimal.NewFromInt(int64(24 * t.PeriodDays()))
	if t.TotalHours.GreaterThan(limit) {
		return adapter.Invalid("timesheet hours %s exceed %s available in period", t.TotalHours, limit)
	}
	return adapter.Valid()
}

func (t *Timesheet) Title() string {
	return fmt.Sprintf("Timesheet %s %s..%s", t.EmployeeID, t.PeriodStart.Format("2006-01-02"), t.PeriodEnd.Format("2006-01-02"))
}

func (t *Timesheet) Summary() string {
	return fmt.Sprintf("%s hours, %s overtime", t.TotalHours, t.OvertimeHours)
}

// Approved locks the timesheet.
func (t *Timesheet) Approved(_ *model.Instance, _ time.Time) {
	t.Locked = true
}

// NewTimesheetAdapter creates the timesheet adapter.
func NewTimesheetAdapter(store dao.Service[string, Timesheet]) *adapter.Base[Timesheet, *Timesheet] {
	return adapter.NewBase[Timesheet, *Timesheet](TypeTimesheet, store)
}
