// Package assignee parses and resolves assignee and escalation rules.
//
// Supported rules:
//
//	user:<id>           a fixed user
//	role:<name>         the first member of a role
//	initiator_manager   the submitter's manager
//	assignee_manager    the current assignee's manager (escalation only)
//	none                no escalation
//
// Escalation rules may chain targets per level, e.g. "assignee_manager > role:cfo",
// and a trailing '*' repeats the last target.
package assignee
