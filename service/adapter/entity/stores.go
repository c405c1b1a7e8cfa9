package entity

import (
	"context"

	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/store"
)

// Stores holds one record store per business type.
type Stores struct {
	Quotes            dao.Service[string, Quote]
	Contracts         dao.Service[string, Contract]
	SalesInvoices     dao.Service[string, SalesInvoice]
	ECNs              dao.Service[string, ECN]
	Projects          dao.Service[string, Project]
	Timesheets        dao.Service[string, Timesheet]
	PurchaseOrders    dao.Service[string, PurchaseOrder]
	OutsourcingOrders dao.Service[string, OutsourcingOrder]
	AcceptanceOrders  dao.Service[string, AcceptanceOrder]
}

// NewMemoryStores creates in-memory stores for every business type.
func NewMemoryStores() *Stores {
	return &Stores{
		Quotes:            store.NewMemoryStore[string, Quote](func(v *Quote) string { return v.ID }),
		Contracts:         store.NewMemoryStore[string, Contract](func(v *Contract) string { return v.ID }),
		SalesInvoices:     store.NewMemoryStore[string, SalesInvoice](func(v *SalesInvoice) string { return v.ID }),
		ECNs:              store.NewMemoryStore[string, ECN](func(v *ECN) string { return v.ID }),
		Projects:          store.NewMemoryStore[string, Project](func(v *Project) string { return v.ID }),
		Timesheets:        store.NewMemoryStore[string, Timesheet](func(v *Timesheet) string { return v.ID }),
		PurchaseOrders:    store.NewMemoryStore[string, PurchaseOrder](func(v *PurchaseOrder) string { return v.ID }),
		OutsourcingOrders: store.NewMemoryStore[string, OutsourcingOrder](func(v *OutsourcingOrder) string { return v.ID }),
		AcceptanceOrders:  store.NewMemoryStore[string, AcceptanceOrder](func(v *AcceptanceOrder) string { return v.ID }),
	}
}

// NewFileStores creates JSON file stores for every business type, one folder per type under baseURL.
func NewFileStores(ctx context.Context, baseURL string, options ...storage.Option) (ret *Stores, err error) {
	ret = &Stores{}
	if ret.Quotes, err = store.NewFileStore[Quote](ctx, url.Join(baseURL, TypeQuote), func(v *Quote) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.Contracts, err = store.NewFileStore[Contract](ctx, url.Join(baseURL, TypeContract), func(v *Contract) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.SalesInvoices, err = store.NewFileStore[SalesInvoice](ctx, url.Join(baseURL, TypeSalesInvoice), func(v *SalesInvoice) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.ECNs, err = store.NewFileStore[ECN](ctx, url.Join(baseURL, TypeECN), func(v *ECN) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.Projects, err = store.NewFileStore[Project](ctx, url.Join(baseURL, TypeProject), func(v *Project) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.Timesheets, err = store.NewFileStore[Timesheet](ctx, url.Join(baseURL, TypeTimesheet), func(v *Timesheet) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.PurchaseOrders, err = store.NewFileStore[PurchaseOrder](ctx, url.Join(baseURL, TypePurchaseOrder), func(v *PurchaseOrder) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.OutsourcingOrders, err = store.NewFileStore[OutsourcingOrder](ctx, url.Join(baseURL, TypeOutsourcingOrder), func(v *OutsourcingOrder) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	if ret.AcceptanceOrders, err = store.NewFileStore[AcceptanceOrder](ctx, url.Join(baseURL, TypeAcceptanceOrder), func(v *AcceptanceOrder) string { return v.ID }, options...); err != nil {
		return nil, err
	}
	return ret, nil
}

// Adapters returns one adapter per business type over stores.
func Adapters(stores *Stores) []adapter.Adapter {
	return []adapter.Adapter{
		NewQuoteAdapter(stores.Quotes),
		NewContractAdapter(stores.Contracts),
		NewSalesInvoiceAdapter(stores.SalesInvoices),
		NewECNAdapter(stores.ECNs),
		NewProjectAdapter(stores.Projects),
		NewTimesheetAdapter(stores.Timesheets),
		NewPurchaseOrderAdapter(stores.PurchaseOrders),
		NewOutsourcingOrderAdapter(stores.OutsourcingOrders),
		NewAcceptanceOrderAdapter(stores.AcceptanceOrders),
	}
}

// RegisterAll registers every business-type adapter.
func RegisterAll(registry *adapter.Registry, stores *Stores) error {
	for _, item := range Adapters(stores) {
		if err := registry.Register(item); err != nil {
			return err
		}
	}
	return nil
}
