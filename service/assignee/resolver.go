package assignee

import (
	"context"

	"github.com/viant/signoff/model"
)

// Subject carries the people a rule may be relative to.
type Subject struct {
	Initiator string
	Assignee  string
}

// Resolver turns rules into user ids.
type Resolver struct {
	directory Directory
}

// Resolve returns the user for rule; failures match model.ErrAssigneeUnresolved.
func (r *Resolver) Resolve(ctx context.Context, rule *Rule, subject Subject) (string, error) {
	switch rule.Kind {
	case KindUser:
		return rule.Value, nil
	case KindRole:
		users, err := r.directory.UsersInRole(ctx, rule.Value)
		if err != nil {
			return "", model.WrapError(model.CodeAssigneeUnresolved, err, "failed to list role %s", rule.Value)
		}
		if len(users) == 0 {
			return "", model.NewError(model.CodeAssigneeUnresolved, "role %s has no members", rule.Value)
		}
		return users[0], nil
	case KindInitiatorManager:
		return r.managerOf(ctx, subject.Initiator)
	case KindAssigneeManager:
		return r.managerOf(ctx, subject.Assignee)
	}
	return "", model.NewError(model.CodeAssigneeUnresolved, "rule %s does not resolve to a user", rule)
}

// ResolveText parses and resolves a rule.
func (r *Resolver) ResolveText(ctx context.Context, text string, subject Subject) (string, error) {
	rule, err := Parse(text)
	if err != nil {
		return "", model.WrapError(model.CodeAssigneeUnresolved, err, "invalid rule")
	}
	return r.Resolve(ctx, rule, subject)
}

// HasRole reports whether userID holds role.
func (r *Resolver) HasRole(ctx context.Context, userID, role string) (bool, error) {
	users, err := r.directory.UsersInRole(ctx, role)
	if err != nil {
		return false, err
	}
	for _, user := range users {
		if user == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) managerOf(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", model.NewError(model.CodeAssigneeUnresolved, "no user to look up a manager for")
	}
	manager, err := r.directory.ManagerOf(ctx, userID)
	if err != nil {
		return "", model.WrapError(model.CodeAssigneeUnresolved, err, "failed to look up manager of %s", userID)
	}
	if manager == "" {
		return "", model.NewError(model.CodeAssigneeUnresolved, "%s has no manager", userID)
	}
	return manager, nil
}

// NewResolver creates a resolver over directory.
func NewResolver(directory Directory) *Resolver {
	if directory == nil {
		directory = NewMemory()
	}
	return &Resolver{directory: directory}
}
