// Package capture resolves what to capture: an interactively selected region,
// the focused output, or a single compositor window.
package capture

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// Target is a resolved capture target. The set of implementations is closed:
// Region, Output and Window.
type Target interface {
	// Kind returns "region", "output" or "window".
	Kind() string
	// Slug names the target in output file names.
	Slug() string
	isTarget()
}

// Target kinds
const (
	KindRegion = "region"
	KindOutput = "output"
	KindWindow = "window"
)

// Region is a rectangle in compositor pixel coordinates.
// Width and Height are always positive; construct it with NewRegion or ParseGeometry.
type Region struct {
	X, Y          int
	Width, Height int
}

// NewRegion validates and returns a Region.
func NewRegion(x, y, width, height int) (Region, error) {
	if width <= 0 || height <= 0 {
		return Region{}, fgerrors.NewValidationError("region must have a positive size").
			WithField("geometry").
			WithValue(fmt.Sprintf("%d,%d %dx%d", x, y, width, height))
	}
	return Region{X: x, Y: y, Width: width, Height: height}, nil
}

var geometryRegex = regexp.MustCompile(`^(-?\d+),(-?\d+) (\d+)x(\d+)$`)

// ParseGeometry parses the selector's "X,Y WxH" output.
func ParseGeometry(s string) (Region, error) {
	m := geometryRegex.FindStringSubmatch(s)
	if m == nil {
		return Region{}, fgerrors.NewValidationError(`geometry must look like "X,Y WxH"`).
			WithField("geometry").
			WithValue(s)
	}

	vals := make([]int, 4)
	for i := range vals {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Region{}, fgerrors.NewValidationError("geometry value out of range").
				WithField("geometry").
				WithValue(s).
				WithCause(err)
		}
		vals[i] = v
	}
	return NewRegion(vals[0], vals[1], vals[2], vals[3])
}

// Geometry renders the region in "X,Y WxH" form.
func (r Region) Geometry() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

func (r Region) String() string { return r.Geometry() }

// Kind implements Target.
func (Region) Kind() string { return KindRegion }

// Slug implements Target.
func (Region) Slug() string { return "region" }

func (Region) isTarget() {}

// Output is a named compositor output. An empty Name means the tool's
// default output.
type Output struct {
	Name string
}

// IsDefault reports whether the output was left to the tool to choose.
func (o Output) IsDefault() bool { return o.Name == "" }

func (o Output) String() string {
	if o.IsDefault() {
		return "default output"
	}
	return o.Name
}

// Kind implements Target.
func (Output) Kind() string { return KindOutput }

// Slug implements Target.
func (Output) Slug() string { return "fullscreen" }

func (Output) isTarget() {}

// Window is a compositor window, identified by its compositor id.
type Window struct {
	ID uint64
}

func (w Window) String() string { return fmt.Sprintf("window %d", w.ID) }

// Kind implements Target.
func (Window) Kind() string { return KindWindow }

// Slug implements Target.
func (w Window) Slug() string { return fmt.Sprintf("window-%d", w.ID) }

func (Window) isTarget() {}

// targetJSON is the persisted form of every Target kind.
type targetJSON struct {
	Kind   string  `json:"kind"`
	X      *int    `json:"x,omitempty"`
	Y      *int    `json:"y,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Name   *string `json:"name,omitempty"`
	ID     uint64  `json:"id,omitempty"`
}

// MarshalTarget encodes t as a JSON object tagged by "kind".
func MarshalTarget(t Target) ([]byte, error) {
	var out targetJSON
	switch v := t.(type) {
	case Region:
		out = targetJSON{Kind: KindRegion, X: &v.X, Y: &v.Y, Width: v.Width, Height: v.Height}
	case Output:
		out = targetJSON{Kind: KindOutput, Name: &v.Name}
	case Window:
		out = targetJSON{Kind: KindWindow, ID: v.ID}
	case nil:
		return nil, fmt.Errorf("cannot encode nil capture target")
	default:
		return nil, fmt.Errorf("unknown capture target %T", t)
	}
	return json.Marshal(out)
}

// UnmarshalTarget decodes a value produced by MarshalTarget.
func UnmarshalTarget(data []byte) (Target, error) {
	var in targetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("invalid capture target: %w", err)
	}

	switch in.Kind {
	case KindRegion:
		if in.X == nil || in.Y == nil {
			return nil, fmt.Errorf("region target is missing coordinates")
		}
		return NewRegion(*in.X, *in.Y, in.Width, in.Height)
	case KindOutput:
		if in.Name == nil {
			return Output{}, nil
		}
		return Output{Name: *in.Name}, nil
	case KindWindow:
		if in.ID == 0 {
			return nil, fmt.Errorf("window target is missing id")
		}
		return Window{ID: in.ID}, nil
	default:
		return nil, fmt.Errorf("unknown capture target kind %q", in.Kind)
	}
}

// Describe renders a target for humans.
func Describe(t Target) string {
	switch v := t.(type) {
	case Region:
		return "region " + v.Geometry()
	case Output:
		if v.IsDefault() {
			return "default output"
		}
		return "output " + v.Name
	case Window:
		return v.String()
	default:
		return "unknown target"
	}
}
