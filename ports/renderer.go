package ports

import (
	"io"

	"datastory/domain/chart"
	"datastory/domain/table"
)

// Renderer turns a validated chart spec plus a filtered table into a
// renderable figure. The core never inspects rendering internals.
type Renderer interface {
	Render(w io.Writer, t *table.Table, spec chart.Spec) error
}
