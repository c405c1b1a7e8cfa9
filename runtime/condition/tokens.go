package condition

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota + 1
	orCode
	andCode
	notCode
	inCode
	operatorCode
	openParenCode
	closeParenCode
	commaCode
	numberCode
	stringCode
	trueCode
	falseCode
	nullCode
	pathCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	orToken         = parsly.NewToken(orCode, "OR", newLogicalMatcher("or", "||"))
	andToken        = parsly.NewToken(andCode, "AND", newLogicalMatcher("and", "&&"))
	notToken        = parsly.NewToken(notCode, "NOT", &notMatcher{})
	inToken         = parsly.NewToken(inCode, "IN", newKeywordMatcher("in"))
	operatorToken   = parsly.NewToken(operatorCode, "Operator", &operatorMatcher{})
	openParenToken  = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	commaToken      = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	stringToken     = parsly.NewToken(stringCode, "String", &quotedMatcher{})
	trueToken       = parsly.NewToken(trueCode, "true", newKeywordMatcher("true"))
	falseToken      = parsly.NewToken(falseCode, "false", newKeywordMatcher("false"))
	nullToken       = parsly.NewToken(nullCode, "null", newKeywordMatcher("null"))
	pathToken       = parsly.NewToken(pathCode, "Path", &pathMatcher{})
)

// keywordMatcher matches a case-insensitive word that is not a prefix of a longer identifier.
type keywordMatcher struct {
	word []byte
}

func newKeywordMatcher(word string) parsly.Matcher {
	return &keywordMatcher{word: []byte(word)}
}

func (m *keywordMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	end := pos + len(m.word)
	if end > cursor.InputSize {
		return 0
	}
	for i, c := range m.word {
		if lower(input[pos+i]) != c {
			return 0
		}
	}
	if end < cursor.InputSize && isIdentifierPart(input[end]) {
		return 0
	}
	return len(m.word)
}

// logicalMatcher matches either a keyword or its symbolic form.
type logicalMatcher struct {
	keyword parsly.Matcher
	symbol  []byte
}

func newLogicalMatcher(word, symbol string) parsly.Matcher {
	return &logicalMatcher{keyword: newKeywordMatcher(word), symbol: []byte(symbol)}
}

func (m *logicalMatcher) Match(cursor *parsly.Cursor) int {
	if matched := m.keyword.Match(cursor); matched > 0 {
		return matched
	}
	if hasPrefix(cursor.Input[cursor.Pos:cursor.InputSize], m.symbol) {
		return len(m.symbol)
	}
	return 0
}

// notMatcher matches NOT or a '!' that does not start '!='.
type notMatcher struct{}

func (m *notMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	if input[pos] == '!' {
		if pos+1 < cursor.InputSize && input[pos+1] == '=' {
			return 0
		}
		return 1
	}
	return newKeywordMatcher("not").Match(cursor)
}

var operators = [][]byte{
	[]byte("=="), []byte("!="), []byte("<>"), []byte(">="), []byte("<="),
	[]byte("="), []byte(">"), []byte("<"),
}

type operatorMatcher struct{}

func (m *operatorMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input[cursor.Pos:cursor.InputSize]
	for _, op := range operators {
		if hasPrefix(input, op) {
			return len(op)
		}
	}
	return 0
}

// numberMatcher matches an optionally signed decimal literal, e.g. -12, 3.14, 1e3.
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	size := cursor.InputSize
	i := cursor.Pos
	if i < size && (input[i] == '-' || input[i] == '+') {
		i++
	}
	digits := 0
	for ; i < size && isDigit(input[i]); i++ {
		digits++
	}
	if i < size && input[i] == '.' {
		i++
		for ; i < size && isDigit(input[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < size && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < size && (input[j] == '-' || input[j] == '+') {
			j++
		}
		exp := j
		for ; j < size && isDigit(input[j]); j++ {
		}
		if j > exp {
			i = j
		}
	}
	if i < size && isIdentifierPart(input[i]) {
		return 0
	}
	return i - cursor.Pos
}

// quotedMatcher matches a single or double quoted string with backslash escapes.
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	quote := input[pos]
	if quote != '\'' && quote != '"' {
		return 0
	}
	for i := pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i - pos + 1
		}
	}
	return 0
}

// pathMatcher matches dotted identifiers, e.g. entity.total_amount.
type pathMatcher struct{}

func (m *pathMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	size := cursor.InputSize
	pos := cursor.Pos
	if pos >= size || !isIdentifierStart(input[pos]) {
		return 0
	}
	i := pos + 1
	for i < size {
		if isIdentifierPart(input[i]) {
			i++
			continue
		}
		if input[i] == '.' && i+1 < size && isIdentifierStart(input[i+1]) {
			i += 2
			continue
		}
		break
	}
	return i - pos
}

func hasPrefix(input, prefix []byte) bool {
	if len(input) < len(prefix) {
		return false
	}
	for i := range prefix {
		if input[i] != prefix[i] {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierPart(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
