package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
)

// Project is a project initiation request.
type Project struct {
	Header
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	ProjectType string          `json:"projectType"`
	ManagerID   string          `json:"managerId"`
	Budget      decimal.Decimal `json:"budget"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
}

// DurationDays returns the inclusive project length in days.
func (p *Project) DurationDays() int {
	if p.EndDate.Before(p.StartDate) {
		return 0
	}
	return int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
}

func (p *Project) Attributes() model.Attributes {
	return model.Attributes{
		"project_code":  model.String(p.Code),
		"project_type":  model.String(p.ProjectType),
		"manager_id":    model.String(p.ManagerID),
		"budget":        model.Number(p.Budget),
		"duration_days": model.Int(int64(p.DurationDays())),
	}
}

func (p *Project) Validate() adapter.Validation {
	if p.ManagerID == "" {
		return adapter.Invalid("project manager is required")
	}
	if p.EndDate.Before(p.StartDate) {
		return adapter.Invalid("project end date precedes start date")
	}
	return adapter.Valid()
}

func (p *Project) Title() string {
	return fmt.Sprintf("Project %s %s", p.Code, p.Name)
}

func (p *Project) Summary() string {
	return fmt.Sprintf("%s project, budget %s, %d days", p.ProjectType, money(p.Budget), p.DurationDays())
}

// NewProjectAdapter creates the project adapter.
func NewProjectAdapter(store dao.Service[string, Project]) *adapter.Base[Project, *Project] {
	return adapter.NewBase[Project, *Project](TypeProject, store)
}
