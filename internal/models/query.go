package models

import (
	"image"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
)

// QueryResponse is the JSON envelope returned by the vision backend.
type QueryResponse struct {
	MaskedImageURL string     `json:"masked_image_url" validate:"required,url"`
	Coordinates    []*float64 `json:"coordinates" validate:"required,len=3"`
}

// Triple returns the coordinates, or false unless there are exactly three
// non-null numbers.
func (r *QueryResponse) Triple() (Coordinates, bool) {
	return CoordinatesFromSlice(r.Coordinates)
}

// Coordinates is an opaque (x, y, z) triple. Units and frame of reference
// belong to the backend.
type Coordinates struct {
	r3.Vector
}

func NewCoordinates(x, y, z float64) Coordinates {
	return Coordinates{r3.Vector{X: x, Y: y, Z: z}}
}

// CoordinatesFromSlice expects exactly three values, none of them null.
func CoordinatesFromSlice(v []*float64) (Coordinates, bool) {
	if len(v) != 3 {
		return Coordinates{}, false
	}
	for _, p := range v {
		if p == nil {
			return Coordinates{}, false
		}
	}
	return NewCoordinates(*v[0], *v[1], *v[2]), true
}

// String renders the triple as "[x, y, z]", always with a decimal point,
// e.g. "[1.0, 2.0, 3.0]".
func (c Coordinates) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(formatFloat(c.X))
	b.WriteString(", ")
	b.WriteString(formatFloat(c.Y))
	b.WriteString(", ")
	b.WriteString(formatFloat(c.Z))
	b.WriteByte(']')
	return b.String()
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !math.IsNaN(v) && !math.IsInf(v, 0) && !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// QueryResult is the outcome of one successful query.
type QueryResult struct {
	ID          string
	Query       string
	MaskedImage image.Image
	Coordinates Coordinates
	ReceivedAt  time.Time
}
