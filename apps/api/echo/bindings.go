package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kidcare/core"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func invalidParam(name, text string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: name, Error: text})
}

// queryBool parses the `name` query param. It returns nil when absent.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, invalidParam(name, "must be a boolean", err)
	}
	return &b, nil
}

// queryTime parses the `name` query param as RFC3339 or as a date (UTC midnight).
func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, invalidParam(name, "must be a RFC3339 time or a YYYY-MM-DD date", err)
	}
	return t, nil
}

// queryRange parses the `from` & `to` query params.
func queryRange(ctx echo.Context) (from, to time.Time, err error) {
	if from, err = queryTime(ctx, "from"); err != nil {
		return
	}
	to, err = queryTime(ctx, "to")
	return
}

// queryList collects the `name` query params, splitting comma-separated values.
func queryList(ctx echo.Context, name string) []string {
	var list []string
	for _, val := range ctx.QueryParams()[name] {
		for _, v := range strings.Split(val, ",") {
			if v = strings.TrimSpace(v); v != "" {
				list = append(list, v)
			}
		}
	}
	return list
}
