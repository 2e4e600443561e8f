package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultLabelColor = "#007bff"

var colorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})$`)

type Label struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// LabelUsage is a label together with the number of tasks referencing it.
type LabelUsage struct {
	Label
	UsageCount int `json:"usage_count"`
}

func NormalizeLabelName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func ValidColor(color string) bool {
	return colorPattern.MatchString(color)
}

// Validate expects the name to be normalized already.
func (l *Label) Validate() ValidationErrors {
	v := &validator{}
	if v.presence("name", l.Name) {
		v.length("name", l.Name, 2, 50)
	}
	if v.presence("color", l.Color) && !ValidColor(l.Color) {
		v.add("color", ReasonInvalid)
	}
	return v.errs
}

// rgb parses #rrggbb or the #rgb shorthand.
func (l *Label) rgb() (r, g, b int64, ok bool) {
	if !ValidColor(l.Color) {
		return 0, 0, 0, false
	}
	hex := strings.TrimPrefix(l.Color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	r, _ = strconv.ParseInt(hex[0:2], 16, 64)
	g, _ = strconv.ParseInt(hex[2:4], 16, 64)
	b, _ = strconv.ParseInt(hex[4:6], 16, 64)
	return r, g, b, true
}

// LightColor uses relative luminance (0.299R + 0.587G + 0.114B) / 255 > 0.5.
func (l *Label) LightColor() bool {
	r, g, b, ok := l.rgb()
	if !ok {
		return false
	}
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	return luminance > 0.5
}

// TextColor picks black text on light labels and white on dark ones.
func (l *Label) TextColor() string {
	if l.LightColor() {
		return "#000000"
	}
	return "#FFFFFF"
}
