// Package condition evaluates node conditions over flattened entity attributes.
//
// Expressions are small boolean formulas over dotted attribute paths, e.g.
//
//	entity.total_amount > 10000 AND entity.project_type IN ('RD', 'PILOT')
//
// Evaluation is pure: the same expression and attributes always yield the same
// result. Missing attributes resolve to null, and any comparison involving null
// is false except an explicit "== null" or "!= null" check.
package condition

import (
	"strings"
	"sync"

	"github.com/viant/signoff/model"
)

// Expression is a compiled, immutable condition safe for concurrent use.
type Expression struct {
	source string
	root   node
}

// Source returns the original expression text.
func (e *Expression) Source() string { return e.source }

// Eval evaluates the expression; a non-boolean result counts as false.
func (e *Expression) Eval(attrs model.Attributes) (result bool) {
	if e == nil || e.root == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			result = false
		}
	}()
	return truthy(e.root.eval(attrs))
}

var cache sync.Map

// Compile parses expr, caching compiled expressions by source text.
// A blank expression compiles to an always-true condition.
func Compile(expr string) (*Expression, error) {
	source := strings.TrimSpace(expr)
	if cached, ok := cache.Load(source); ok {
		return cached.(*Expression), nil
	}
	ret := &Expression{source: source}
	if source != "" {
		root, err := parse(source)
		if err != nil {
			return nil, err
		}
		ret.root = root
	}
	actual, _ := cache.LoadOrStore(source, ret)
	return actual.(*Expression), nil
}

// Evaluate compiles and evaluates expr. A malformed expression evaluates to false; a blank one to true.
func Evaluate(expr string, attrs model.Attributes) bool {
	compiled, err := Compile(expr)
	if err != nil {
		return false
	}
	return compiled.Eval(attrs)
}

// Validate reports a syntax error in expr, if any.
func Validate(expr string) error {
	_, err := Compile(expr)
	return err
}
