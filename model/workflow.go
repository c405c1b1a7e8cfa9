package model

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// TimeoutAction decides what happens when a node's task becomes overdue.
type TimeoutAction string

const (
	TimeoutEscalate TimeoutAction = "escalate"
	TimeoutReject   TimeoutAction = "reject"
	TimeoutApprove  TimeoutAction = "approve"
)

// Definition is a versioned approval flow for one business type.
// A published definition is immutable; changes are published as a new version.
type Definition struct {
	// Source is the location the definition was loaded from, if any.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// FlowCode identifies the flow; together with Version it is the unique key.
	FlowCode string `json:"flowCode" yaml:"flowCode"`

	BusinessType string `json:"businessType" yaml:"businessType"`

	Version int `json:"version" yaml:"version"`

	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Nodes are ordered by Order; execution is strictly sequential.
	Nodes []*Node `json:"nodes" yaml:"nodes"`
}

// Node is one approval step.
type Node struct {
	Order int    `json:"order" yaml:"order"`
	Name  string `json:"name" yaml:"name"`

	// Assignee is an assignee rule, e.g. "user:42", "role:finance_manager" or "initiator_manager".
	Assignee string `json:"assignee" yaml:"assignee"`

	// When is an optional condition; the node is skipped when it evaluates false.
	When string `json:"when,omitempty" yaml:"when,omitempty"`

	// Timeout is the time a task may stay pending before it is eligible for escalation; zero disables it.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Escalation is the escalation target rule, e.g. "assignee_manager > role:cfo".
	Escalation string `json:"escalation,omitempty" yaml:"escalation,omitempty"`

	TimeoutAction TimeoutAction `json:"timeoutAction,omitempty" yaml:"timeoutAction,omitempty"`
}

// NewDefinition creates an empty version 1 definition.
func NewDefinition(flowCode, businessType string) *Definition {
	return &Definition{FlowCode: flowCode, BusinessType: businessType, Version: 1}
}

// AddNode appends a node and returns it for further configuration.
func (d *Definition) AddNode(order int, name, assignee string) *Node {
	node := &Node{Order: order, Name: name, Assignee: assignee}
	d.Nodes = append(d.Nodes, node)
	return node
}

// WithCondition sets the node condition.
func (n *Node) WithCondition(expr string) *Node {
	n.When = expr
	return n
}

// WithTimeout sets the node timeout.
func (n *Node) WithTimeout(timeout time.Duration) *Node {
	n.Timeout = timeout
	return n
}

// WithEscalation sets the escalation target rule.
func (n *Node) WithEscalation(rule string) *Node {
	n.Escalation = rule
	return n
}

// WithTimeoutAction sets the timeout action.
func (n *Node) WithTimeoutAction(action TimeoutAction) *Node {
	n.TimeoutAction = action
	return n
}

// OnTimeout returns the effective timeout action.
func (n *Node) OnTimeout() TimeoutAction {
	if n.TimeoutAction == "" {
		return TimeoutEscalate
	}
	return n.TimeoutAction
}

// Key returns "flowCode@version".
func (d *Definition) Key() string {
	return fmt.Sprintf("%s@%d", d.FlowCode, d.Version)
}

// Init sorts nodes by order.
func (d *Definition) Init() {
	sort.SliceStable(d.Nodes, func(i, j int) bool { return d.Nodes[i].Order < d.Nodes[j].Order })
}

// Node returns the node with the given order, or nil.
func (d *Definition) Node(order int) *Node {
	for _, node := range d.Nodes {
		if node.Order == order {
			return node
		}
	}
	return nil
}

// After returns the nodes following order, in execution order. Pass 0 to get all nodes.
func (d *Definition) After(order int) []*Node {
	var ret []*Node
	for _, node := range d.Nodes {
		if node.Order > order {
			ret = append(ret, node)
		}
	}
	return ret
}

// Clone returns a deep copy.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	ret := *d
	if d.Nodes == nil {
		return &ret
	}
	ret.Nodes = make([]*Node, 0, len(d.Nodes))
	for _, node := range d.Nodes {
		if node == nil {
			ret.Nodes = append(ret.Nodes, nil)
			continue
		}
		copied := *node
		ret.Nodes = append(ret.Nodes, &copied)
	}
	return &ret
}

// Equal reports whether two definitions have identical content.
func (d *Definition) Equal(other *Definition) bool {
	if d == nil || other == nil {
		return d == other
	}
	left, right := *d, *other
	left.Source, right.Source = "", ""
	return reflect.DeepEqual(left, right)
}

// Validate performs structural validation. The returned slice is empty when the definition is sound.
// Rule and condition syntax is checked by the definition service, which knows the grammars.
func (d *Definition) Validate() []error {
	var issues []error
	if d.FlowCode == "" {
		issues = append(issues, fmt.Errorf("flowCode is empty"))
	}
	if d.BusinessType == "" {
		issues = append(issues, fmt.Errorf("flow %s: businessType is empty", d.FlowCode))
	}
	if d.Version <= 0 {
		issues = append(issues, fmt.Errorf("flow %s: version must be > 0", d.FlowCode))
	}
	prev := 0
	for i, node := range d.Nodes {
		if node == nil {
			issues = append(issues, fmt.Errorf("flow %s: node #%d is nil", d.FlowCode, i))
			continue
		}
		if node.Order <= 0 {
			issues = append(issues, fmt.Errorf("flow %s: node %q order must be > 0", d.FlowCode, node.Name))
		}
		if i > 0 && node.Order <= prev {
			issues = append(issues, fmt.Errorf("flow %s: node order %d is not strictly increasing", d.FlowCode, node.Order))
		}
		prev = node.Order
		if node.Assignee == "" {
			issues = append(issues, fmt.Errorf("flow %s: node %d has no assignee rule", d.FlowCode, node.Order))
		}
		if node.Timeout < 0 {
			issues = append(issues, fmt.Errorf("flow %s: node %d timeout is negative", d.FlowCode, node.Order))
		}
		switch node.TimeoutAction {
		case "", TimeoutEscalate, TimeoutReject, TimeoutApprove:
		default:
			issues = append(issues, fmt.Errorf("flow %s: node %d has unsupported timeoutAction %q", d.FlowCode, node.Order, node.TimeoutAction))
		}
	}
	return issues
}
