package template

import (
	"bytes"
	"strconv"
	"time"

	"github.com/loggate/loggate/core"
)

// appendJSON builds the fixed-shape JSON record manually into the buffer
// without reflection. The shape is independent of text templates:
// timestamp, level, category, message, then optional fields only when
// the event carries them.
func (e *Engine) appendJSON(ev *core.Event, buf *bytes.Buffer) {
	buf.WriteByte('{')

	buf.WriteString(`"timestamp":"`)
	buf.Write(ev.Time.AppendFormat(buf.AvailableBuffer(), e.timestampFormat))
	buf.WriteByte('"')

	buf.WriteString(`,"level":"`)
	buf.WriteString(ev.Level.String())
	buf.WriteByte('"')

	buf.WriteString(`,"category":"`)
	appendJSONString(buf, ev.Category)
	buf.WriteByte('"')

	buf.WriteString(`,"message":"`)
	appendJSONString(buf, ev.Message)
	buf.WriteByte('"')

	if ev.Frame != 0 {
		buf.WriteString(`,"frame":`)
		buf.Write(strconv.AppendUint(buf.AvailableBuffer(), ev.Frame, 10))
	}

	if ev.ThreadID != 0 || ev.ThreadName != "" {
		buf.WriteString(`,"thread":{"id":`)
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), ev.ThreadID, 10))
		if ev.ThreadName != "" {
			buf.WriteString(`,"name":"`)
			appendJSONString(buf, ev.ThreadName)
			buf.WriteByte('"')
		}
		buf.WriteByte('}')
	}

	if ev.Caller.Defined {
		buf.WriteString(`,"caller":{"file":"`)
		appendJSONString(buf, ev.Caller.ShortFile)
		buf.WriteString(`","line":`)
		buf.WriteString(strconv.Itoa(ev.Caller.Line))
		if ev.Caller.Function != "" {
			buf.WriteString(`,"function":"`)
			appendJSONString(buf, ev.Caller.Function)
			buf.WriteByte('"')
		}
		buf.WriteByte('}')
	}

	if ev.Stack != "" {
		buf.WriteString(`,"stack":"`)
		appendJSONString(buf, ev.Stack)
		buf.WriteByte('"')
	}

	if len(ev.Context) > 0 {
		buf.WriteString(`,"context":{`)
		for i, field := range ev.Context {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			appendJSONString(buf, field.Key)
			buf.WriteString(`":`)
			appendJSONFieldValue(buf, field)
		}
		buf.WriteByte('}')
	}

	buf.WriteString("}\n")
}

// appendJSONString writes a JSON-escaped string (without surrounding quotes) to the buffer
func appendJSONString(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		if start < i {
			buf.WriteString(s[start:i])
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexChars[c>>4])
			buf.WriteByte(hexChars[c&0x0f])
		}
		start = i + 1
	}
	if start < len(s) {
		buf.WriteString(s[start:])
	}
}

var hexChars = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// appendJSONFieldValue writes a JSON-encoded field value to the buffer
func appendJSONFieldValue(buf *bytes.Buffer, field core.Field) {
	switch field.Type {
	case core.StringType:
		buf.WriteByte('"')
		appendJSONString(buf, field.Str)
		buf.WriteByte('"')
	case core.IntType, core.Int64Type:
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), field.Int64, 10))
	case core.Float64Type:
		buf.Write(strconv.AppendFloat(buf.AvailableBuffer(), field.Float64, 'f', -1, 64))
	case core.BoolType:
		buf.Write(strconv.AppendBool(buf.AvailableBuffer(), field.Int64 == 1))
	case core.TimeType:
		buf.WriteByte('"')
		buf.Write(time.Unix(0, field.Int64).AppendFormat(buf.AvailableBuffer(), time.RFC3339Nano))
		buf.WriteByte('"')
	case core.DurationType:
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), field.Int64, 10))
	case core.ErrorType:
		buf.WriteByte('"')
		appendJSONString(buf, field.Str)
		buf.WriteByte('"')
	default:
		buf.WriteByte('"')
		appendJSONString(buf, field.StringValue())
		buf.WriteByte('"')
	}
}
