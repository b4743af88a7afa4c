package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pondokpesantren/sipondok/core"
)

var orderingParam = "ordering"

// Ordering is bound from `?ordering=name,-created_at`; a leading "-" sorts descending.
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

// splitList reads a list param sent either repeated (`?id=a&id=b`) or comma separated (`?ids=a,b`).
func splitList(ctx echo.Context, names ...string) []string {
	params := ctx.QueryParams()
	var out []string
	for _, name := range names {
		for _, v := range params[name] {
			for _, item := range strings.Split(v, ",") {
				if item = core.CleanString(item, true /* lower */); item != "" {
					out = append(out, item)
				}
			}
		}
	}
	return core.UniqueStrings(out)
}
