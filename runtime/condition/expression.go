package condition

import (
	"strings"

	"github.com/viant/signoff/model"
)

// node is a compiled expression element.
type node interface {
	eval(attrs model.Attributes) model.Value
}

type literal struct {
	value model.Value
}

func (l *literal) eval(model.Attributes) model.Value { return l.value }

type path struct {
	name string
}

const entityPrefix = "entity."

// eval looks up the full path first, then the path without the entity prefix.
func (p *path) eval(attrs model.Attributes) model.Value {
	if value, ok := attrs[p.name]; ok {
		return value
	}
	if len(p.name) > len(entityPrefix) && strings.EqualFold(p.name[:len(entityPrefix)], entityPrefix) {
		return attrs.Lookup(p.name[len(entityPrefix):])
	}
	return model.Null()
}

type logical struct {
	and         bool
	left, right node
}

func (l *logical) eval(attrs model.Attributes) model.Value {
	left := truthy(l.left.eval(attrs))
	if l.and {
		if !left {
			return model.Bool(false)
		}
		return model.Bool(truthy(l.right.eval(attrs)))
	}
	if left {
		return model.Bool(true)
	}
	return model.Bool(truthy(l.right.eval(attrs)))
}

type negation struct {
	operand node
}

func (n *negation) eval(attrs model.Attributes) model.Value {
	return model.Bool(!truthy(n.operand.eval(attrs)))
}

type comparison struct {
	op          string
	left, right node
	// nullCheck is set when one side is the null literal.
	nullCheck bool
}

func (c *comparison) eval(attrs model.Attributes) model.Value {
	left, right := c.left.eval(attrs), c.right.eval(attrs)
	if c.nullCheck {
		bothNull := left.IsNull() && right.IsNull()
		switch c.op {
		case "==":
			return model.Bool(bothNull)
		case "!=":
			return model.Bool(!bothNull)
		}
		return model.Bool(false)
	}
	return model.Bool(compare(c.op, left, right))
}

type membership struct {
	negated bool
	operand node
	items   []node
}

func (m *membership) eval(attrs model.Attributes) model.Value {
	value := m.operand.eval(attrs)
	if value.IsNull() {
		return model.Bool(false)
	}
	for _, item := range m.items {
		if compare("==", value, item.eval(attrs)) {
			return model.Bool(!m.negated)
		}
	}
	return model.Bool(m.negated)
}

func truthy(value model.Value) bool {
	flag, ok := value.Truth()
	return ok && flag
}

// compare applies op; any Null operand yields false.
func compare(op string, left, right model.Value) bool {
	if left.IsNull() || right.IsNull() {
		return false
	}
	switch {
	case left.Kind() == model.KindBool || right.Kind() == model.KindBool:
		l, lok := left.Truth()
		r, rok := right.Truth()
		if !lok || !rok {
			return false
		}
		switch op {
		case "==":
			return l == r
		case "!=":
			return l != r
		}
		return false
	case left.Kind() == model.KindString && right.Kind() == model.KindString:
		l, _ := left.Text()
		r, _ := right.Text()
		return ordered(op, strings.Compare(l, r))
	default:
		l, lok := left.Decimal()
		r, rok := right.Decimal()
		if !lok || !rok {
			return false
		}
		return ordered(op, l.Cmp(r))
	}
}

func ordered(op string, cmp int) bool {
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}
