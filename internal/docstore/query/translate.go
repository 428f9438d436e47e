package query

import (
	"bytes"
	"strings"
	"unicode"
)

var keywordReplacements = map[string]string{
	"AND":   "&&",
	"OR":    "||",
	"TRUE":  "true",
	"FALSE": "false",
	"NULL":  "null",
}

// translatePredicate rewrites the SQL operators of a WHERE clause into CEL.
// String literals are copied verbatim. NOT negates everything up to the next
// AND or OR at the same nesting level, so its operand is wrapped in
// parentheses.
func translatePredicate(predicate string) string {
	var b bytes.Buffer
	runes := []rune(predicate)

	depth := 0
	var negations []int
	closeNegations := func(atDepth int) {
		n := 0
		for len(negations) > 0 && negations[len(negations)-1] >= atDepth {
			negations = negations[:len(negations)-1]
			n++
		}
		if n == 0 {
			return
		}
		trimmed := len(bytes.TrimRightFunc(b.Bytes(), unicode.IsSpace))
		trailing := string(b.Bytes()[trimmed:])
		b.Truncate(trimmed)
		b.WriteString(strings.Repeat(")", n))
		b.WriteString(trailing)
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '\'' || r == '"':
			end := closingQuote(runes, i)
			b.WriteString(string(runes[i : end+1]))
			i = end

		case r == '(':
			depth++
			b.WriteRune(r)

		case r == ')':
			closeNegations(depth)
			if depth > 0 {
				depth--
			}
			b.WriteRune(r)

		case r == '<' && i+1 < len(runes) && runes[i+1] == '>':
			b.WriteString("!=")
			i++

		case r == '=':
			prevOp := i > 0 && strings.ContainsRune("<>!=", runes[i-1])
			nextEq := i+1 < len(runes) && runes[i+1] == '='
			switch {
			case nextEq:
				b.WriteString("==")
				i++
			case prevOp:
				b.WriteRune(r)
			default:
				b.WriteString("==")
			}

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1]) || runes[i+1] == '_') {
				i++
			}
			word := string(runes[start : i+1])
			if start > 0 && runes[start-1] == '.' {
				b.WriteString(word)
				continue
			}
			upper := strings.ToUpper(word)
			switch upper {
			case "NOT":
				b.WriteString("!(")
				negations = append(negations, depth)
				for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
					i++
				}
			case "AND", "OR":
				closeNegations(depth)
				b.WriteString(keywordReplacements[upper])
			default:
				if repl, ok := keywordReplacements[upper]; ok {
					b.WriteString(repl)
				} else {
					b.WriteString(word)
				}
			}

		default:
			b.WriteRune(r)
		}
	}
	closeNegations(0)
	return b.String()
}

// closingQuote returns the index of the quote closing the literal opened at
// start, honouring backslash escapes. An unterminated literal runs to the end.
func closingQuote(runes []rune, start int) int {
	quote := runes[start]
	for j := start + 1; j < len(runes); j++ {
		switch runes[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return len(runes) - 1
}
