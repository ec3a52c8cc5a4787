package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Format renders v the way a reader of blame reports expects to see it.
func Format(v any) string {
	var b strings.Builder
	writeValue(&b, v, true)
	return b.String()
}

func writeValue(b *strings.Builder, v any, top bool) {
	if i, ok := AsExactInt(v); ok {
		if _, isNum := v.(json.Number); !isNum {
			b.WriteString(strconv.FormatInt(i, 10))
			return
		}
	}
	switch x := v.(type) {
	case nil:
		if top {
			b.WriteString("'()")
		} else {
			b.WriteString("()")
		}
	case bool:
		if x {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case float64:
		b.WriteString(formatFloat(x))
	case float32:
		b.WriteString(formatFloat(float64(x)))
	case json.Number:
		b.WriteString(x.String())
	case string:
		b.WriteString(strconv.Quote(x))
	case Procedure:
		if x.Name() == "" {
			b.WriteString("#<procedure>")
		} else {
			b.WriteString("#<procedure:" + x.Name() + ">")
		}
	case []any:
		if top {
			b.WriteString("'")
		}
		b.WriteString("(")
		for i, e := range x {
			if i > 0 {
				b.WriteString(" ")
			}
			writeValue(b, e, false)
		}
		b.WriteString(")")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("#hash(")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("(")
			b.WriteString(strconv.Quote(k))
			b.WriteString(" . ")
			writeValue(b, x[k], false)
			b.WriteString(")")
		}
		b.WriteString(")")
	case fmt.Stringer:
		b.WriteString(x.String())
	default:
		fmt.Fprintf(b, "%v", x)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf.0"
	case math.IsInf(f, -1):
		return "-inf.0"
	case math.IsNaN(f):
		return "+nan.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
