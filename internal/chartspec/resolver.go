// Package chartspec validates a requested chart configuration against a
// table and produces a normalized chart.Spec. The renderer collaborator is
// only ever called with a spec that passed this resolver.
package chartspec

import (
	"fmt"

	"datastory/domain/chart"
	"datastory/domain/table"
	"datastory/internal/errors"
)

// Request is the raw chart configuration chosen by the user.
type Request struct {
	Kind chart.Kind `json:"kind"`
	X    string     `json:"x_column"`
	Y    string     `json:"y_column,omitempty"`
	Size string     `json:"size_column,omitempty"`
}

// Resolver validates chart requests.
type Resolver struct{}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve checks the request against the table and the per-kind
// compatibility rules and returns a validated spec, or a CHART_SPEC_ERROR.
func (r *Resolver) Resolve(t *table.Table, req Request) (chart.Spec, error) {
	if !req.Kind.IsValid() {
		return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("unsupported chart kind %q", req.Kind))
	}

	x := req.X
	if x == "" {
		x = r.SuggestX(t, req.Kind)
	}
	if x == "" {
		return chart.Spec{}, errors.ChartSpecError("no columns available for the x-axis")
	}
	if !t.HasColumn(x) {
		return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("x-axis column %q does not exist", x))
	}

	spec := chart.Spec{Kind: req.Kind, X: x}

	switch req.Kind {
	case chart.KindHistogram:
		// Histogram takes a single axis; any y selection is dropped.
		return spec, nil

	case chart.KindPie:
		if req.Y == "" {
			return chart.Spec{}, errors.ChartSpecError("pie charts need a value column for the y-axis")
		}
		if !t.HasColumn(req.Y) {
			return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("y-axis column %q does not exist", req.Y))
		}
		spec.Y = req.Y
		return spec, nil

	case chart.KindScatter, chart.KindBubble:
		if err := requireNumericY(t, req.Y, req.Kind); err != nil {
			return chart.Spec{}, err
		}
		spec.Y = req.Y
		if req.Size != "" {
			if err := requireNumeric(t, req.Size, "size"); err != nil {
				return chart.Spec{}, err
			}
			spec.Size = req.Size
		}
		return spec, nil

	case chart.KindBox, chart.KindViolin:
		if err := requireNumericY(t, req.Y, req.Kind); err != nil {
			return chart.Spec{}, err
		}
		spec.Y = req.Y
		return spec, nil

	case chart.KindLine, chart.KindArea:
		if req.Y == "" {
			return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("%s charts need a y-axis column", req.Kind))
		}
		if !t.HasColumn(req.Y) {
			return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("y-axis column %q does not exist", req.Y))
		}
		spec.Y = req.Y
		return spec, nil

	case chart.KindHeatmap:
		if req.Y == "" {
			return chart.Spec{}, errors.ChartSpecError("heatmaps need a y-axis column to aggregate")
		}
		if err := requireNumeric(t, req.Y, "y-axis"); err != nil {
			return chart.Spec{}, err
		}
		spec.Y = req.Y
		return spec, nil

	case chart.KindBar:
		// Bar degrades to a count-style chart when no y-axis is chosen.
		if req.Y != "" {
			if !t.HasColumn(req.Y) {
				return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("y-axis column %q does not exist", req.Y))
			}
			spec.Y = req.Y
		}
		return spec, nil
	}

	return chart.Spec{}, errors.ChartSpecError(fmt.Sprintf("unsupported chart kind %q", req.Kind))
}

// SuggestX proposes a default x-axis for a kind: the first datetime column
// for line/area charts, otherwise the first column.
func (r *Resolver) SuggestX(t *table.Table, kind chart.Kind) string {
	names := t.ColumnNames()
	if len(names) == 0 {
		return ""
	}
	if kind == chart.KindLine || kind == chart.KindArea {
		if datetimes := t.ColumnsOfType(table.TypeDatetime); len(datetimes) > 0 {
			return datetimes[0]
		}
	}
	return names[0]
}

func requireNumericY(t *table.Table, y string, kind chart.Kind) error {
	if y == "" {
		return errors.ChartSpecError(fmt.Sprintf("%s charts need a numeric y-axis column", kind))
	}
	return requireNumeric(t, y, "y-axis")
}

func requireNumeric(t *table.Table, name, role string) error {
	col, ok := t.Column(name)
	if !ok {
		return errors.ChartSpecError(fmt.Sprintf("%s column %q does not exist", role, name))
	}
	if col.Type != table.TypeNumeric {
		return errors.ChartSpecError(fmt.Sprintf("%s column %q must be numeric, got %s", role, name, col.Type))
	}
	return nil
}
