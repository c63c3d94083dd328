// Package staticmap builds static map image URLs for item and building markers.
package staticmap

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/paulmach/orb"
)

// Marker colours.
const (
	ColorLow      = "red"
	ColorNormal   = "blue"
	ColorBuilding = "purple"
)

// DefaultBaseURL is the Google Static Maps endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/staticmap"

// Config controls image geometry and credentials.
type Config struct {
	APIKey    string
	BaseURL   string
	Width     int
	Height    int
	Scale     int
	MapType   string
	ChunkSize int
}

// Marker is one labelled pin.
type Marker struct {
	Point orb.Point
	Color string
	Label string
}

// Builder renders marker sets into provider URLs.
type Builder struct {
	cfg Config
}

// New returns a Builder, filling unset geometry with the defaults
// 1024x640, scale 2, roadmap, 80 markers per URL.
func New(cfg Config) *Builder {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Width <= 0 {
		cfg.Width = 1024
	}
	if cfg.Height <= 0 {
		cfg.Height = 640
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	if cfg.MapType == "" {
		cfg.MapType = "roadmap"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 80
	}
	return &Builder{cfg: cfg}
}

// Enabled reports whether an API key is configured.
func (b *Builder) Enabled() bool {
	return b != nil && b.cfg.APIKey != ""
}

// URLs renders markers into one URL per chunk. Without a key or markers it
// returns nil.
func (b *Builder) URLs(markers []Marker) []string {
	if !b.Enabled() || len(markers) == 0 {
		return nil
	}
	var urls []string
	for start := 0; start < len(markers); start += b.cfg.ChunkSize {
		end := min(start+b.cfg.ChunkSize, len(markers))
		urls = append(urls, b.URL(markers[start:end]))
	}
	return urls
}

// URL renders all markers into a single URL. Without a key or markers it
// returns "".
func (b *Builder) URL(markers []Marker) string {
	if !b.Enabled() || len(markers) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(b.cfg.BaseURL)
	sb.WriteByte('?')
	writeParam(&sb, "size", strconv.Itoa(b.cfg.Width)+"x"+strconv.Itoa(b.cfg.Height), true)
	writeParam(&sb, "scale", strconv.Itoa(b.cfg.Scale), false)
	writeParam(&sb, "maptype", b.cfg.MapType, false)
	for _, m := range markers {
		pos := formatPoint(m.Point)
		writeParam(&sb, "markers", "color:"+m.Color+"|label:"+m.Label+"|"+pos, false)
		writeParam(&sb, "visible", pos, false)
	}
	writeParam(&sb, "key", b.cfg.APIKey, false)
	return sb.String()
}

// ItemMarker is red below lowStock units, blue otherwise, labelled with the
// item's initial.
func ItemMarker(name string, quantity, lowStock int, lat, lng float64) Marker {
	color := ColorNormal
	if quantity < lowStock {
		color = ColorLow
	}
	return Marker{Point: orb.Point{lng, lat}, Color: color, Label: Initial(name, "")}
}

// BuildingMarker is purple, labelled with the building's initial or "B".
func BuildingMarker(name string, lat, lng float64) Marker {
	return Marker{Point: orb.Point{lng, lat}, Color: ColorBuilding, Label: Initial(name, "B")}
}

// Initial returns the upper-cased first rune of name, or fallback when empty.
func Initial(name, fallback string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || name == "" {
		return fallback
	}
	return string(unicode.ToUpper(r))
}

// Bounds returns the bounding box of the markers and whether any exist.
func Bounds(markers []Marker) (orb.Bound, bool) {
	if len(markers) == 0 {
		return orb.Bound{}, false
	}
	points := make(orb.MultiPoint, 0, len(markers))
	for _, m := range markers {
		points = append(points, m.Point)
	}
	return points.Bound(), true
}

func formatPoint(p orb.Point) string {
	return strconv.FormatFloat(p.Lat(), 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon(), 'f', -1, 64)
}

func writeParam(sb *strings.Builder, key, value string, first bool) {
	if !first {
		sb.WriteByte('&')
	}
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(url.QueryEscape(value))
}
