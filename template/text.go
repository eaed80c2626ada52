package template

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/loggate/loggate/core"
)

// token identifiers for the recognized template tokens
type token uint8

const (
	tokLiteral token = iota
	tokTimestamp
	tokLevel
	tokCategory
	tokMessage
	tokNewline
	tokFrame
	tokThread
	tokFile
	tokLine
	tokStacktrace
)

// tokens maps lower-cased token names to their identifier. Lookup is
// case-insensitive; names not present here stay in the output verbatim.
var tokens = map[string]token{
	"timestamp":  tokTimestamp,
	"level":      tokLevel,
	"category":   tokCategory,
	"message":    tokMessage,
	"newline":    tokNewline,
	"frame":      tokFrame,
	"thread":     tokThread,
	"file":       tokFile,
	"line":       tokLine,
	"stacktrace": tokStacktrace,
}

// segment is one compiled unit of a template: either a literal run of
// text or a token substitution.
type segment struct {
	tok     token
	literal string
}

// compiled is a template parsed into segments once, so rendering is a
// single pass with no scanning.
type compiled struct {
	segments []segment
}

// compile parses a template string. A substitution is "{name}" where
// name contains no braces; anything else, including unmatched or unknown
// braces, is literal text.
func compile(text string) *compiled {
	var segs []segment
	lit := strings.Builder{}

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{tok: tokLiteral, literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		open := strings.IndexByte(text[i:], '{')
		if open < 0 {
			lit.WriteString(text[i:])
			break
		}
		open += i
		lit.WriteString(text[i:open])

		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			lit.WriteString(text[open:])
			break
		}
		close += open

		name := text[open+1 : close]
		if tok, ok := tokens[strings.ToLower(name)]; ok {
			flush()
			segs = append(segs, segment{tok: tok})
		} else {
			// unknown token passes through literally
			lit.WriteString(text[open : close+1])
		}
		i = close + 1
	}
	flush()

	return &compiled{segments: segs}
}

// render substitutes event values into the compiled template. Optional
// fields the event lacks render as empty strings.
func (c *compiled) render(ev *core.Event, timestampFormat string, buf *bytes.Buffer) {
	for _, seg := range c.segments {
		switch seg.tok {
		case tokLiteral:
			buf.WriteString(seg.literal)
		case tokTimestamp:
			buf.Write(ev.Time.AppendFormat(buf.AvailableBuffer(), timestampFormat))
		case tokLevel:
			buf.WriteString(ev.Level.String())
		case tokCategory:
			buf.WriteString(ev.Category)
		case tokMessage:
			buf.WriteString(ev.Message)
		case tokNewline:
			buf.WriteByte('\n')
		case tokFrame:
			if ev.Frame != 0 {
				buf.Write(strconv.AppendUint(buf.AvailableBuffer(), ev.Frame, 10))
			}
		case tokThread:
			if ev.ThreadName != "" {
				buf.WriteString(ev.ThreadName)
			} else if ev.ThreadID != 0 {
				buf.Write(strconv.AppendInt(buf.AvailableBuffer(), ev.ThreadID, 10))
			}
		case tokFile:
			if ev.Caller.Defined {
				buf.WriteString(ev.Caller.ShortFile)
			}
		case tokLine:
			if ev.Caller.Defined {
				buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(ev.Caller.Line), 10))
			}
		case tokStacktrace:
			buf.WriteString(ev.Stack)
		}
	}
}
