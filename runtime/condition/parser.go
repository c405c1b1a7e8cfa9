package condition

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/signoff/model"
)

// parse builds an expression tree:
//
//	expr    := or
//	or      := and (("OR" | "||") and)*
//	and     := not (("AND" | "&&") not)*
//	not     := ("NOT" | "!") not | cmp
//	cmp     := operand (op operand | ["NOT"] "IN" "(" operand ("," operand)* ")")?
//	operand := path | number | string | true | false | null | "(" expr ")"
func parse(expr string) (node, error) {
	p := &parser{cursor: parsly.NewCursor("condition", []byte(expr), 0)}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.cursor.MatchOne(whitespaceToken)
	if p.cursor.HasMore() {
		return nil, fmt.Errorf("unexpected %q at %d", string(p.cursor.Input[p.cursor.Pos:]), p.cursor.Pos)
	}
	return root, nil
}

type parser struct {
	cursor *parsly.Cursor
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		matched := p.cursor.MatchAfterOptional(whitespaceToken, orToken)
		if matched.Code != orCode {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logical{left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		matched := p.cursor.MatchAfterOptional(whitespaceToken, andToken)
		if matched.Code != andCode {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &logical{and: true, left: left, right: right}
	}
}

func (p *parser) parseNot() (node, error) {
	matched := p.cursor.MatchAfterOptional(whitespaceToken, notToken)
	if matched.Code == notCode {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &negation{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, isNull, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	pos := p.cursor.Pos
	matched := p.cursor.MatchAfterOptional(whitespaceToken, operatorToken, notToken, inToken)
	switch matched.Code {
	case operatorCode:
		op := normalizeOperator(matched.Text(p.cursor))
		right, rightNull, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &comparison{op: op, left: left, right: right, nullCheck: isNull || rightNull}, nil
	case notCode:
		if p.cursor.MatchAfterOptional(whitespaceToken, inToken).Code != inCode {
			return nil, p.cursor.NewError(inToken)
		}
		items, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &membership{negated: true, operand: left, items: items}, nil
	case inCode:
		items, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &membership{operand: left, items: items}, nil
	}
	p.cursor.Pos = pos
	return left, nil
}

func (p *parser) parseList() ([]node, error) {
	if p.cursor.MatchAfterOptional(whitespaceToken, openParenToken).Code != openParenCode {
		return nil, p.cursor.NewError(openParenToken)
	}
	var items []node
	for {
		item, _, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		matched := p.cursor.MatchAfterOptional(whitespaceToken, commaToken, closeParenToken)
		switch matched.Code {
		case commaCode:
			continue
		case closeParenCode:
			return items, nil
		default:
			return nil, p.cursor.NewError(commaToken, closeParenToken)
		}
	}
}

// parseOperand returns the operand and whether it is the null literal.
func (p *parser) parseOperand() (node, bool, error) {
	matched := p.cursor.MatchAfterOptional(whitespaceToken, openParenToken, numberToken, stringToken, trueToken, falseToken, nullToken, pathToken)
	switch matched.Code {
	case openParenCode:
		inner, err := p.parseOr()
		if err != nil {
			return nil, false, err
		}
		if p.cursor.MatchAfterOptional(whitespaceToken, closeParenToken).Code != closeParenCode {
			return nil, false, p.cursor.NewError(closeParenToken)
		}
		return inner, false, nil
	case numberCode:
		value, err := model.ParseNumber(matched.Text(p.cursor))
		if err != nil {
			return nil, false, err
		}
		return &literal{value: value}, false, nil
	case stringCode:
		text, err := unquote(matched.Text(p.cursor))
		if err != nil {
			return nil, false, err
		}
		return &literal{value: model.String(text)}, false, nil
	case trueCode:
		return &literal{value: model.Bool(true)}, false, nil
	case falseCode:
		return &literal{value: model.Bool(false)}, false, nil
	case nullCode:
		return &literal{value: model.Null()}, true, nil
	case pathCode:
		return &path{name: matched.Text(p.cursor)}, false, nil
	case parsly.EOF:
		return nil, false, fmt.Errorf("unexpected end of expression")
	}
	return nil, false, p.cursor.NewError(pathToken, numberToken, stringToken, openParenToken)
}

func normalizeOperator(op string) string {
	switch op {
	case "=":
		return "=="
	case "<>":
		return "!="
	}
	return op
}

func unquote(text string) (string, error) {
	if len(text) < 2 {
		return "", fmt.Errorf("invalid string literal %s", text)
	}
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String(), nil
}
