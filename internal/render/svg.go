package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/search"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

// Marker is a named reference point.
type Marker struct {
	Name  string       `json:"name,omitempty" yaml:"name,omitempty"`
	Point geo.GeoPoint `json:"point" yaml:"point"`
}

type svgPoint struct {
	Name string
	X, Y float64
}

type svgData struct {
	Refs      []svgPoint
	Meridians []float64
	Parallels []float64
	Best      svgPoint
	Nearest   svgPoint
	Width     int
	Height    int
	Found     bool
	Distance  string
}

var svgTemplate = template.Must(template.New("result").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
  <rect x="0" y="0" width="{{.Width}}" height="{{.Height}}" fill="#1f4e79"/>
  <g stroke="#ffffff" stroke-opacity="0.2" stroke-width="1">
  {{- range .Meridians}}
    <line x1="{{.}}" y1="0" x2="{{.}}" y2="{{$.Height}}"/>
  {{- end}}
  {{- range .Parallels}}
    <line x1="0" y1="{{.}}" x2="{{$.Width}}" y2="{{.}}"/>
  {{- end}}
  </g>
  <g fill="#d9c28f">
  {{- range .Refs}}
    <circle cx="{{.X}}" cy="{{.Y}}" r="3"><title>{{.Name | html}}</title></circle>
  {{- end}}
  </g>
  {{- if .Found}}
  <line x1="{{.Best.X}}" y1="{{.Best.Y}}" x2="{{.Nearest.X}}" y2="{{.Nearest.Y}}" stroke="#ff5a36" stroke-dasharray="4 3"/>
  <circle cx="{{.Best.X}}" cy="{{.Best.Y}}" r="5" fill="#ff5a36"><title>{{.Best.Name | html}}</title></circle>
  <text x="{{.Best.X}}" y="{{.Best.Y}}" dx="8" dy="4" fill="#ffffff" font-family="sans-serif" font-size="12">{{.Distance}}</text>
  {{- end}}
</svg>
`))

// ResultSVG plots refs and the search result on an equirectangular world
// map width pixels wide and returns minified SVG.
func ResultSVG(res search.Result, refs []Marker, width int) (string, error) {
	if width <= 0 {
		width = 1440
	}
	height := width / 2

	project := func(name string, p geo.GeoPoint) svgPoint {
		return svgPoint{
			Name: name,
			X:    (p.Lon + 180) / 360 * float64(width),
			Y:    (90 - p.Lat) / 180 * float64(height),
		}
	}

	data := svgData{
		Width:  width,
		Height: height,
		Found:  res.Found,
	}

	for lon := -150.0; lon < 180; lon += 30 {
		data.Meridians = append(data.Meridians, project("", geo.GeoPoint{Lon: lon}).X)
	}
	for lat := 60.0; lat > -90; lat -= 30 {
		data.Parallels = append(data.Parallels, project("", geo.GeoPoint{Lat: lat}).Y)
	}

	for _, r := range refs {
		name := r.Name
		if name == "" {
			name = r.Point.String()
		}
		data.Refs = append(data.Refs, project(name, r.Point))
	}

	if res.Found {
		data.Best = project(res.Best.String(), res.Best)
		data.Nearest = project(res.Nearest.String(), res.Nearest)
		data.Distance = fmt.Sprintf("%.1f km", res.DistanceKm)
	}

	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)

	return m.String("image/svg+xml", buf.String())
}
