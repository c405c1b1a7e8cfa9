package assignee

import (
	"fmt"
	"strings"
)

// Kind identifies how a rule resolves to a user.
type Kind string

const (
	KindUser             Kind = "user"
	KindRole             Kind = "role"
	KindInitiatorManager Kind = "initiator_manager"
	KindAssigneeManager  Kind = "assignee_manager"
	KindNone             Kind = "none"
)

// Rule is a single assignee rule, e.g. "user:42", "role:cfo" or "initiator_manager".
type Rule struct {
	Kind  Kind
	Value string
}

func (r *Rule) String() string {
	if r.Value == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + r.Value
}

// Parse parses a single rule.
func Parse(text string) (*Rule, error) {
	text = strings.TrimSpace(text)
	name, value, hasValue := strings.Cut(text, ":")
	kind := Kind(strings.ToLower(strings.TrimSpace(name)))
	value = strings.TrimSpace(value)
	switch kind {
	case KindUser, KindRole:
		if !hasValue || value == "" {
			return nil, fmt.Errorf("rule %q: %s requires a value", text, kind)
		}
		return &Rule{Kind: kind, Value: value}, nil
	case KindInitiatorManager, KindAssigneeManager, KindNone:
		if hasValue {
			return nil, fmt.Errorf("rule %q: %s takes no value", text, kind)
		}
		return &Rule{Kind: kind}, nil
	case "":
		return nil, fmt.Errorf("empty rule")
	}
	return nil, fmt.Errorf("rule %q: unsupported kind %q", text, kind)
}

// ParseAssignee parses a node assignee rule; rules relative to a current assignee are not allowed.
func ParseAssignee(text string) (*Rule, error) {
	rule, err := Parse(text)
	if err != nil {
		return nil, err
	}
	switch rule.Kind {
	case KindAssigneeManager, KindNone:
		return nil, fmt.Errorf("rule %q cannot be used as a node assignee", text)
	}
	return rule, nil
}

// Chain is an escalation rule: targets used in turn, one per escalation level.
// A trailing '*' repeats the last target indefinitely, e.g. "assignee_manager*".
type Chain struct {
	Rules  []*Rule
	Repeat bool
}

// ParseChain parses "a > b > c" with an optional trailing '*'. A blank text yields an empty chain.
func ParseChain(text string) (*Chain, error) {
	ret := &Chain{}
	text = strings.TrimSpace(text)
	if text == "" {
		return ret, nil
	}
	if strings.HasSuffix(text, "*") {
		ret.Repeat = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "*"))
	}
	for _, part := range strings.Split(text, ">") {
		rule, err := Parse(part)
		if err != nil {
			return nil, fmt.Errorf("escalation %q: %w", text, err)
		}
		ret.Rules = append(ret.Rules, rule)
	}
	return ret, nil
}

// At returns the target for an escalation level (0 for the first escalation); false means no further escalation.
func (c *Chain) At(level int) (*Rule, bool) {
	if c == nil || len(c.Rules) == 0 || level < 0 {
		return nil, false
	}
	if level >= len(c.Rules) {
		if !c.Repeat {
			return nil, false
		}
		level = len(c.Rules) - 1
	}
	rule := c.Rules[level]
	if rule.Kind == KindNone {
		return nil, false
	}
	return rule, true
}
