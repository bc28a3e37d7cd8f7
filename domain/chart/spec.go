// Package chart defines the chart kinds the pipeline understands and the
// normalized specification handed to the renderer collaborator.
package chart

// Kind is the categorical type of visualization. It determines axis
// constraints and which narrative template applies.
type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindScatter   Kind = "scatter"
	KindBox       Kind = "box"
	KindViolin    Kind = "violin"
	KindHistogram Kind = "histogram"
	KindPie       Kind = "pie"
	KindArea      Kind = "area"
	KindHeatmap   Kind = "heatmap"
	KindBubble    Kind = "bubble"
)

// Kinds lists every supported chart kind in display order.
func Kinds() []Kind {
	return []Kind{
		KindBar, KindLine, KindScatter, KindBox, KindViolin,
		KindHistogram, KindPie, KindArea, KindHeatmap, KindBubble,
	}
}

// IsValid reports whether k names a supported chart kind.
func (k Kind) IsValid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Spec is a validated chart configuration. Column references are guaranteed
// to exist in the table the spec was resolved against, with types compatible
// with the kind. Only a resolver should construct one.
type Spec struct {
	Kind Kind   `json:"kind"`
	X    string `json:"x_column"`
	Y    string `json:"y_column,omitempty"`
	Size string `json:"size_column,omitempty"`
}

// HasY reports whether the spec carries a Y axis.
func (s Spec) HasY() bool {
	return s.Y != ""
}
