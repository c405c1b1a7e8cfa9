// Package signoff provides a multi-entity approval engine.
//
// Business records (quotes, contracts, invoices, purchase orders and more)
// are submitted into declarative, ordered approval flows. Each node names an
// assignee rule and an optional condition over the record's attributes;
// nodes whose condition is false are skipped, and the instance completes
// when no node remains. Overdue tasks escalate along a per-node chain.
//
// The root Service wires the pieces from a Config:
//
//   - engine     – submit, act, withdraw, cancel, escalate and queries
//   - definition – versioned flow definitions loaded from YAML
//   - approval   – in-memory or Postgres instance and task store
//   - notify     – asynchronous notifications (log, audit, redis)
//   - escalation – periodic overdue sweep
//   - api        – HTTP boundary
//
// Typical embedding:
//
//	srv, _ := signoff.New(ctx, signoff.WithConfig(cfg))
//	defer srv.Close(ctx)
//	instance, _ := srv.Engine().Submit(ctx, &engine.SubmitRequest{
//		BusinessType: "quote", EntityID: "q-1", InitiatorID: "alice",
//	})
package signoff
