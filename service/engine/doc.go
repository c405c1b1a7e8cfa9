// Package engine implements the approval state machine.
//
// The engine creates an approval instance when a business entity is
// submitted, walks the flow's nodes one at a time (skipping nodes whose
// condition is false), records human decisions on tasks, and handles
// withdrawal, administrative cancellation and overdue tasks.
//
// Every mutation runs inside approval.Store.Transact: submissions are
// serialised per entity, everything else per instance. Adapter callbacks run
// after the writes inside the same transaction; their failures are logged and
// counted but never undo the transition. Notifications and cache
// invalidation happen after commit and are best effort.
package engine
