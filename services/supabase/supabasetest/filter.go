package supabasetest

import (
	"strconv"
	"strings"
	"time"
)

var controlParams = map[string]bool{
	"select":      true,
	"order":       true,
	"limit":       true,
	"offset":      true,
	"on_conflict": true,
	"columns":     true,
}

func matchesAll(r row, query map[string][]string) bool {
	for column, exprs := range query {
		if controlParams[column] {
			continue
		}
		for _, expr := range exprs {
			if !matches(r, column, expr) {
				return false
			}
		}
	}
	return true
}

func matches(r row, column, expr string) bool {
	op, value, ok := strings.Cut(expr, ".")
	if !ok {
		return false
	}
	field, present := r[column]
	if !present {
		field = nil
	}

	switch op {
	case "eq":
		return field != nil && compareValues(field, value) == 0
	case "neq":
		return field != nil && compareValues(field, value) != 0
	case "gt":
		return field != nil && compareValues(field, value) > 0
	case "gte":
		return field != nil && compareValues(field, value) >= 0
	case "lt":
		return field != nil && compareValues(field, value) < 0
	case "lte":
		return field != nil && compareValues(field, value) <= 0
	case "is":
		switch value {
		case "null":
			return field == nil
		case "true", "false":
			b, isBool := field.(bool)
			return isBool && strconv.FormatBool(b) == value
		}
		return false
	case "in":
		for _, item := range parseInList(value) {
			if field != nil && compareValues(field, item) == 0 {
				return true
			}
		}
		return false
	}
	return false
}

// parseInList reads "(a,b,"c,d")" honoring double quotes and backslash escapes.
func parseInList(s string) []string {
	s = strings.TrimPrefix(strings.TrimSuffix(s, ")"), "(")
	var (
		items   []string
		cur     strings.Builder
		quoted  bool
		escaped bool
	)
	for _, ch := range s {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quoted:
			escaped = true
		case ch == '"':
			quoted = !quoted
		case ch == ',' && !quoted:
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	items = append(items, cur.String())
	return items
}

// compareValues orders two values the way the database would for the
// column's type: numbers numerically, timestamps chronologically, the rest as text.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	as, bs := text(a), text(b)

	if af, err := strconv.ParseFloat(as, 64); err == nil {
		if bf, err := strconv.ParseFloat(bs, 64); err == nil {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}

	if at, ok := parseTime(as); ok {
		if bt, ok := parseTime(bs); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
	}

	return strings.Compare(as, bs)
}

func text(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
