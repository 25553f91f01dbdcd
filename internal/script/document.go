package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"animkit/internal/config"
	"animkit/internal/interp"
	"animkit/pkg/easing"
)

// Timeline kinds.
const (
	KindDouble = "double"
	KindColor  = "color"
	KindPoint  = "point"
)

var ErrInvalidDocument = errors.New("invalid storyboard document")

// Document is a decoded storyboard document.
type Document struct {
	Name        string                    `json:"name"`
	Duration    string                    `json:"duration,omitempty"`
	Easing      string                    `json:"easing,omitempty"`
	AutoReverse bool                      `json:"auto_reverse,omitempty"`
	Rate        string                    `json:"rate,omitempty"`
	Targets     map[string]map[string]any `json:"targets"`
	Timelines   []TimelineSpec            `json:"timelines"`

	// Source is the path or name the document was parsed from.
	Source string `json:"-"`
}

// TimelineSpec is one entry of Document.Timelines.
type TimelineSpec struct {
	Target      string `json:"target"`
	Property    string `json:"property"`
	Kind        string `json:"kind,omitempty"` // empty: inferred from the property
	From        any    `json:"from"`
	To          any    `json:"to"`
	Begin       string `json:"begin,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Easing      string `json:"easing,omitempty"`
	AutoReverse bool   `json:"auto_reverse,omitempty"`
}

// Load reads and parses a document file.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse decodes data; the format follows the extension of name (.yaml/.yml
// or JSON otherwise). A document without a name is named after the file.
func Parse(name string, data []byte) (*Document, error) {
	var doc Document
	if err := config.DecodeStrict(name, data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrInvalidDocument, err)
	}
	doc.Source = name
	if strings.TrimSpace(doc.Name) == "" {
		base := filepath.Base(name)
		doc.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	doc.Name = strings.TrimSpace(doc.Name)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrInvalidDocument, err)
	}
	return &doc, nil
}

// Validate checks references, durations, easing names and from/to values.
func (d *Document) Validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if _, err := config.ParseDurationField("duration", d.Duration); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("rate", d.Rate); err != nil {
		return err
	}
	if _, err := parseEasing("easing", d.Easing); err != nil {
		return err
	}
	for target, values := range d.Targets {
		if strings.TrimSpace(target) == "" {
			return errors.New("targets: empty target name")
		}
		for prop := range values {
			if strings.TrimSpace(prop) == "" {
				return fmt.Errorf("targets.%s: empty property name", target)
			}
		}
	}
	for i, tl := range d.Timelines {
		if err := d.validateTimeline(tl); err != nil {
			return fmt.Errorf("timelines[%d]: %w", i, err)
		}
	}
	return nil
}

func (d *Document) validateTimeline(tl TimelineSpec) error {
	values, ok := d.Targets[tl.Target]
	if !ok {
		return fmt.Errorf("unknown target %q", tl.Target)
	}
	initial, ok := values[tl.Property]
	if !ok {
		return fmt.Errorf("target %q has no property %q", tl.Target, tl.Property)
	}
	if _, err := config.ParseDurationField("begin", tl.Begin); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("duration", tl.Duration); err != nil {
		return err
	}
	if _, err := parseEasing("easing", tl.Easing); err != nil {
		return err
	}
	kind := tl.kind(initial)
	if _, err := parseValue(kind, tl.From); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if _, err := parseValue(kind, tl.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	return nil
}

// kind returns the explicit kind or the one implied by the initial value.
func (tl TimelineSpec) kind(initial any) string {
	if k := strings.ToLower(strings.TrimSpace(tl.Kind)); k != "" {
		return k
	}
	switch inferValue(initial).(type) {
	case interp.Color:
		return KindColor
	case interp.Point:
		return KindPoint
	default:
		return KindDouble
	}
}

func parseValue(kind string, v any) (any, error) {
	switch kind {
	case KindDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("want number, got %T", v)
		}
		return f, nil
	case KindColor:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want color string, got %T", v)
		}
		return interp.ParseColor(s)
	case KindPoint:
		return interp.ParsePoint(v)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// inferValue converts a decoded initial value to the type its property
// will be declared with.
func inferValue(v any) any {
	switch x := v.(type) {
	case string:
		if c, err := interp.ParseColor(x); err == nil {
			return c
		}
	case []any:
		if p, err := interp.ParsePoint(x); err == nil {
			return p
		}
	}
	return v
}

func parseEasing(field, name string) (easing.Func, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	f, ok := easing.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown easing %q (known: %s)", field, name, strings.Join(easing.Names(), ", "))
	}
	return f, nil
}

func mustDuration(raw string) time.Duration {
	d, _ := config.ParseDurationField("", raw)
	return d
}
