// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package assembler

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind is the lexical class of a token.
type TokenKind int

const (
	TOKEN_IDENT      = TokenKind(0)  // identifier, mnemonic or label
	TOKEN_DIRECTIVE  = TokenKind(1)  // .word
	TOKEN_REGISTER   = TokenKind(2)  // $t0, $8, $status
	TOKEN_INTEGER    = TokenKind(3)  // 100, 0x10, 'a'
	TOKEN_REAL       = TokenKind(4)  // 1.5, 1e10
	TOKEN_STRING     = TokenKind(5)  // "text"
	TOKEN_COMMA      = TokenKind(6)  // ,
	TOKEN_COLON      = TokenKind(7)  // :
	TOKEN_LPAREN     = TokenKind(8)  // (
	TOKEN_RPAREN     = TokenKind(9)  // )
	TOKEN_PLUS       = TokenKind(10) // +
	TOKEN_MINUS      = TokenKind(11) // -
	TOKEN_PARAM      = TokenKind(12) // %name, a macro parameter
	TOKEN_OPERATOR   = TokenKind(13) // %hi, %lo, %hiu, %lou
	TOKEN_EXPRESSION = TokenKind(14) // $(expr)
)

func (kind TokenKind) String() string {
	switch kind {
	case TOKEN_IDENT:
		return "identifier"
	case TOKEN_DIRECTIVE:
		return "directive"
	case TOKEN_REGISTER:
		return "register"
	case TOKEN_INTEGER:
		return "integer"
	case TOKEN_REAL:
		return "real"
	case TOKEN_STRING:
		return "string"
	case TOKEN_COMMA:
		return "comma"
	case TOKEN_COLON:
		return "colon"
	case TOKEN_LPAREN:
		return "left paren"
	case TOKEN_RPAREN:
		return "right paren"
	case TOKEN_PLUS:
		return "plus"
	case TOKEN_MINUS:
		return "minus"
	case TOKEN_PARAM:
		return "macro parameter"
	case TOKEN_OPERATOR:
		return "operator"
	case TOKEN_EXPRESSION:
		return "expression"
	}
	return fmt.Sprintf("TokenKind(%d)", int(kind))
}

// Token is one lexical element of a source line.
type Token struct {
	Kind   TokenKind
	Text   string  // Source text.
	Column int     // 1-based column of the first character.
	Value  int64   // TOKEN_INTEGER value.
	Real   float64 // TOKEN_REAL value.
	Str    string  // TOKEN_STRING contents, with escapes decoded.
}

func (tok Token) String() string {
	return tok.Text
}

// relocationOperators are the %name() operators.
var relocationOperators = map[string]bool{
	"%hi":  true,
	"%lo":  true,
	"%hiu": true,
	"%lou": true,
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || ch == '.' || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// unescape decodes one backslash escape, returning the byte and the
// number of source characters consumed after the backslash.
func unescape(text string) (ch byte, size int, ok bool) {
	if len(text) == 0 {
		return
	}
	size = 1
	ok = true
	switch text[0] {
	case 'n':
		ch = '\n'
	case 't':
		ch = '\t'
	case 'r':
		ch = '\r'
	case 'b':
		ch = '\b'
	case 'f':
		ch = '\f'
	case '0':
		ch = 0
	case 'e':
		ch = '\033'
	case '\\', '\'', '"':
		ch = text[0]
	default:
		ok = false
	}
	return
}

// Tokenize splits one source line into tokens. Comments start with '#'.
func Tokenize(line string) (tokens []Token, err error) {
	pos := 0

	fail := func(col int, text string) {
		err = &ErrToken{Column: col + 1, Text: text}
	}

	for pos < len(line) && err == nil {
		ch := line[pos]
		start := pos

		emit := func(kind TokenKind) {
			tokens = append(tokens, Token{Kind: kind, Text: line[start:pos], Column: start + 1})
		}

		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			pos++
		case ch == '#':
			return
		case ch == ',':
			pos++
			emit(TOKEN_COMMA)
		case ch == ':':
			pos++
			emit(TOKEN_COLON)
		case ch == '(':
			pos++
			emit(TOKEN_LPAREN)
		case ch == ')':
			pos++
			emit(TOKEN_RPAREN)
		case ch == '+':
			pos++
			emit(TOKEN_PLUS)
		case ch == '-':
			pos++
			emit(TOKEN_MINUS)
		case ch == '"':
			var str strings.Builder
			pos++
			closed := false
			for pos < len(line) {
				c := line[pos]
				if c == '"' {
					pos++
					closed = true
					break
				}
				if c == '\\' {
					decoded, size, ok := unescape(line[pos+1:])
					if !ok {
						fail(pos, line[pos:min(pos+2, len(line))])
						return
					}
					str.WriteByte(decoded)
					pos += 1 + size
					continue
				}
				str.WriteByte(c)
				pos++
			}
			if !closed {
				fail(start, line[start:])
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_STRING, Text: line[start:pos], Column: start + 1, Str: str.String()})
		case ch == '\'':
			var value byte
			pos++
			if pos < len(line) && line[pos] == '\\' {
				decoded, size, ok := unescape(line[pos+1:])
				if !ok {
					fail(start, line[start:])
					return
				}
				value = decoded
				pos += 1 + size
			} else if pos < len(line) {
				value = line[pos]
				pos++
			}
			if pos >= len(line) || line[pos] != '\'' {
				fail(start, line[start:])
				return
			}
			pos++
			tokens = append(tokens, Token{Kind: TOKEN_INTEGER, Text: line[start:pos], Column: start + 1, Value: int64(value)})
		case ch == '$' && pos+1 < len(line) && line[pos+1] == '(':
			depth := 0
			for pos < len(line) {
				c := line[pos]
				pos++
				if c == '(' {
					depth++
				} else if c == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth != 0 {
				fail(start, line[start:])
				return
			}
			emit(TOKEN_EXPRESSION)
		case ch == '$':
			pos++
			for pos < len(line) && isIdentChar(line[pos]) {
				pos++
			}
			if pos == start+1 {
				fail(start, "$")
				return
			}
			emit(TOKEN_REGISTER)
		case ch == '%':
			pos++
			for pos < len(line) && isIdentChar(line[pos]) {
				pos++
			}
			if pos == start+1 {
				fail(start, "%")
				return
			}
			rest := strings.TrimLeft(line[pos:], " \t")
			if relocationOperators[line[start:pos]] && strings.HasPrefix(rest, "(") {
				emit(TOKEN_OPERATOR)
			} else {
				emit(TOKEN_PARAM)
			}
		case ch == '.' && pos+1 < len(line) && isIdentStart(line[pos+1]):
			pos++
			for pos < len(line) && isIdentChar(line[pos]) {
				pos++
			}
			emit(TOKEN_DIRECTIVE)
		case isDigit(ch) || (ch == '.' && pos+1 < len(line) && isDigit(line[pos+1])):
			var tok Token
			tok, pos, err = scanNumber(line, pos)
			if err != nil {
				return
			}
			tokens = append(tokens, tok)
		case isIdentStart(ch):
			for pos < len(line) && isIdentChar(line[pos]) {
				pos++
			}
			emit(TOKEN_IDENT)
		default:
			fail(start, string(ch))
		}
	}

	return
}

// scanNumber scans an integer or real number.
func scanNumber(line string, start int) (tok Token, pos int, err error) {
	pos = start
	isReal := false

	hex := strings.HasPrefix(strings.ToLower(line[pos:]), "0x")
	if hex {
		pos += 2
	}

	for scanning := true; scanning && pos < len(line); {
		c := line[pos]
		switch {
		case isDigit(c), c == '_':
		case hex && strings.ContainsRune("abcdefABCDEF", rune(c)):
		case !hex && (c == 'b' || c == 'B' || c == 'o' || c == 'O') && pos == start+1 && line[start] == '0':
		case !hex && c == '.':
			isReal = true
		case !hex && (c == 'e' || c == 'E'):
			isReal = true
			if pos+1 < len(line) && (line[pos+1] == '+' || line[pos+1] == '-') {
				pos++
			}
		default:
			scanning = false
			continue
		}
		pos++
	}

	text := line[start:pos]
	tok = Token{Text: text, Column: start + 1}

	if isReal {
		tok.Kind = TOKEN_REAL
		tok.Real, err = strconv.ParseFloat(text, 64)
	} else {
		tok.Kind = TOKEN_INTEGER
		tok.Value, err = parseInteger(text)
	}
	if err != nil {
		err = &ErrToken{Column: start + 1, Text: text}
	}

	return
}

// parseInteger parses decimal, hex (0x), binary (0b) or octal (0o)
// integers. A leading zero does not mean octal.
func parseInteger(text string) (value int64, err error) {
	lower := strings.ToLower(text)
	base := 10
	switch {
	case strings.HasPrefix(lower, "0x"):
		base = 16
		lower = lower[2:]
	case strings.HasPrefix(lower, "0b"):
		base = 2
		lower = lower[2:]
	case strings.HasPrefix(lower, "0o"):
		base = 8
		lower = lower[2:]
	}
	lower = strings.ReplaceAll(lower, "_", "")
	value, err = strconv.ParseInt(lower, base, 64)
	if err == nil && value > 0xffffffff {
		err = strconv.ErrRange
	}
	return
}

// splitOperands splits tokens on commas that are not within parentheses.
func splitOperands(tokens []Token) (groups [][]Token) {
	if len(tokens) == 0 {
		return
	}

	depth := 0
	var group []Token
	for _, tok := range tokens {
		switch tok.Kind {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case TOKEN_COMMA:
			if depth == 0 {
				groups = append(groups, group)
				group = nil
				continue
			}
		}
		group = append(group, tok)
	}
	groups = append(groups, group)

	return
}

// joinTokens renders tokens back to source text, in the compact form
// used by basic assembly: "loop: addi $t0,$t0,-1".
func joinTokens(tokens []Token) string {
	mnemonic := 0
	for mnemonic+1 < len(tokens) && tokens[mnemonic].Kind == TOKEN_IDENT && tokens[mnemonic+1].Kind == TOKEN_COLON {
		mnemonic += 2
	}

	var text strings.Builder
	for n, tok := range tokens {
		switch {
		case n == 0:
		case tokens[n-1].Kind == TOKEN_COLON:
			text.WriteString(" ")
		case n == mnemonic+1 && tok.Kind != TOKEN_LPAREN:
			text.WriteString(" ")
		}
		text.WriteString(tok.Text)
	}
	return text.String()
}
