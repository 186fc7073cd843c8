package supabase

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Operator is a PostgREST horizontal filter operator.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
	OpIs  Operator = "is"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	selectPattern     = regexp.MustCompile(`^[A-Za-z0-9_*,:().!\- ]+$`)

	// Filtering on these would collide with query parameters of the same name.
	reservedParams = map[string]bool{"select": true, "order": true, "limit": true, "offset": true, "on_conflict": true, "columns": true}

	ErrInvalidQuery       = errors.New("invalid query")
	ErrUnfilteredMutation = errors.New("update and delete require at least one filter")
)

// Condition is one column filter.
type Condition struct {
	Column string
	Op     Operator
	Value  interface{}
}

func Eq(column string, value interface{}) Condition  { return Condition{column, OpEq, value} }
func Neq(column string, value interface{}) Condition { return Condition{column, OpNeq, value} }
func Gt(column string, value interface{}) Condition  { return Condition{column, OpGt, value} }
func Gte(column string, value interface{}) Condition { return Condition{column, OpGte, value} }
func Lt(column string, value interface{}) Condition  { return Condition{column, OpLt, value} }
func Lte(column string, value interface{}) Condition { return Condition{column, OpLte, value} }

// Is matches null, true or false.
func Is(column string, value interface{}) Condition { return Condition{column, OpIs, value} }

// In matches any of values.
func In(column string, values ...interface{}) Condition {
	return Condition{column, OpIn, values}
}

// Values converts a typed slice for use with In.
func Values[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// Filter is a conjunction of conditions.
type Filter []Condition

// Match builds a Filter from conditions.
func Match(conds ...Condition) Filter {
	return Filter(conds)
}

// Validate checks every column, operator and value before anything is serialized.
func (f Filter) Validate() error {
	for _, cond := range f {
		if _, err := cond.encode(); err != nil {
			return err
		}
	}
	return nil
}

func (f Filter) apply(values url.Values) error {
	for _, cond := range f {
		encoded, err := cond.encode()
		if err != nil {
			return err
		}
		values.Add(cond.Column, encoded)
	}
	return nil
}

func (c Condition) encode() (string, error) {
	if !identifierPattern.MatchString(c.Column) || reservedParams[c.Column] {
		return "", fmt.Errorf("%w: column %q", ErrInvalidQuery, c.Column)
	}

	switch c.Op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		v, err := formatValue(c.Value)
		if err != nil {
			return "", fmt.Errorf("%w: column %q: %v", ErrInvalidQuery, c.Column, err)
		}
		return string(c.Op) + "." + v, nil

	case OpIs:
		switch v := c.Value.(type) {
		case nil:
			return "is.null", nil
		case bool:
			return "is." + strconv.FormatBool(v), nil
		default:
			return "", fmt.Errorf("%w: column %q: is accepts null or bool", ErrInvalidQuery, c.Column)
		}

	case OpIn:
		list, ok := c.Value.([]interface{})
		if !ok || len(list) == 0 {
			return "", fmt.Errorf("%w: column %q: in requires a non-empty list", ErrInvalidQuery, c.Column)
		}
		parts := make([]string, len(list))
		for i, item := range list {
			v, err := formatValue(item)
			if err != nil {
				return "", fmt.Errorf("%w: column %q: %v", ErrInvalidQuery, c.Column, err)
			}
			parts[i] = quoteListItem(v)
		}
		return "in.(" + strings.Join(parts, ",") + ")", nil
	}

	return "", fmt.Errorf("%w: operator %q", ErrInvalidQuery, c.Op)
}

func formatValue(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}

// quoteListItem double-quotes list members that contain PostgREST reserved characters.
func quoteListItem(v string) string {
	if !strings.ContainsAny(v, ",.:()\" \\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// Order sorts a query by one column.
type Order struct {
	Column     string
	Desc       bool
	NullsFirst bool
}

func (o Order) encode() (string, error) {
	if !identifierPattern.MatchString(o.Column) {
		return "", fmt.Errorf("%w: order column %q", ErrInvalidQuery, o.Column)
	}
	s := o.Column
	if o.Desc {
		s += ".desc"
	} else {
		s += ".asc"
	}
	if o.NullsFirst {
		s += ".nullsfirst"
	}
	return s, nil
}

// Asc and Desc are shorthands for a single ordering.
func Asc(column string) []Order  { return []Order{{Column: column}} }
func Desc(column string) []Order { return []Order{{Column: column, Desc: true}} }

// Query describes a read: projection, filters, ordering, limit and whether
// exactly one row is expected.
type Query struct {
	Select string
	Filter Filter
	Order  []Order
	Limit  int
	Single bool
}

// Values validates the query and renders its URL parameters.
func (q *Query) Values() (url.Values, error) {
	values := url.Values{}
	if q == nil {
		values.Set("select", "*")
		return values, nil
	}

	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	if !selectPattern.MatchString(sel) {
		return nil, fmt.Errorf("%w: select %q", ErrInvalidQuery, sel)
	}
	values.Set("select", sel)

	if err := q.Filter.apply(values); err != nil {
		return nil, err
	}

	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			encoded, err := o.encode()
			if err != nil {
				return nil, err
			}
			parts[i] = encoded
		}
		values.Set("order", strings.Join(parts, ","))
	}

	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values, nil
}

func validateTable(name string) error {
	if !identifierPattern.MatchString(name) || strings.Contains(name, ".") {
		return fmt.Errorf("%w: table %q", ErrInvalidQuery, name)
	}
	return nil
}
