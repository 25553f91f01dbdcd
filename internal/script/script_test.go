package script

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"animkit/internal/animation"
	"animkit/internal/interp"
	"animkit/internal/props"
	"animkit/internal/storyboard"
)

type fakeCommitter struct {
	name string
	run  animation.Run
}

func (f *fakeCommitter) Commit(name string, run animation.Run) error {
	f.name, f.run = name, run
	return nil
}
func (f *fakeCommitter) Abort(string) bool     { return false }
func (f *fakeCommitter) IsRunning(string) bool { return false }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

const introYAML = `
name: intro
targets:
  box:
    opacity: 0.0
    fill: "#ff0000"
    origin: [0, 0]
    label: hello
timelines:
  - {target: box, property: opacity, kind: double, from: 0, to: 1, duration: 500ms}
  - {target: box, property: fill, kind: color, from: red, to: "#0000ff", begin: 250ms, duration: 1s}
  - {target: box, property: origin, from: [0, 0], to: [10, 20], duration: 1250ms, easing: linear}
`

func TestParseAndPlay(t *testing.T) {
	t.Parallel()
	doc, err := Parse("intro.yaml", []byte(introYAML))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "intro" || len(doc.Timelines) != 3 {
		t.Fatalf("doc = %+v", doc)
	}

	var sched fakeCommitter
	scene, err := doc.Build(props.NewStore(), &sched)
	if err != nil {
		t.Fatal(err)
	}
	box, ok := scene.Target("box")
	if !ok {
		t.Fatal("target box missing")
	}
	if got := box.PropertyNames(); strings.Join(got, ",") != "fill,label,opacity,origin" {
		t.Fatalf("properties = %v", got)
	}
	if fill, _ := box.Property("fill"); fill.Type != reflect.TypeFor[interp.Color]() {
		t.Fatalf("fill type = %v", fill.Type)
	}

	if err := scene.Storyboard.Begin(); err != nil {
		t.Fatal(err)
	}
	if sched.name != "intro" || sched.run.Length != 1250*time.Millisecond {
		t.Fatalf("committed %q length %v", sched.name, sched.run.Length)
	}

	if err := sched.run.Step(0.4); err != nil {
		t.Fatal(err)
	}
	snap := scene.Snapshot()["box"]
	if snap["opacity"] != 1.0 {
		t.Fatalf("opacity = %v, want 1", snap["opacity"])
	}
	fill := snap["fill"].(interp.Color)
	if !near(fill.R, 0.75) || !near(fill.B, 0.25) || fill.A != 1 {
		t.Fatalf("fill = %+v, want a quarter of the way to blue", fill)
	}
	origin := snap["origin"].(interp.Point)
	if !near(origin.X, 4) || !near(origin.Y, 8) {
		t.Fatalf("origin = %v", origin)
	}
	if snap["label"] != "hello" {
		t.Fatalf("label = %v", snap["label"])
	}
}

func TestKindMismatchSurfacesAtBegin(t *testing.T) {
	t.Parallel()
	raw := `{"name":"bad","targets":{"box":{"fill":"blue"}},
		"timelines":[{"target":"box","property":"fill","kind":"double","from":0,"to":1}]}`
	doc, err := Parse("bad.json", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	var sched fakeCommitter
	scene, err := doc.Build(nil, &sched)
	if err != nil {
		t.Fatal(err)
	}
	err = scene.Storyboard.Begin()
	var ce *storyboard.ConfigError
	if !errors.As(err, &ce) || ce.Property != "fill" {
		t.Fatalf("err = %v, want ConfigError on fill", err)
	}
	if sched.name != "" {
		t.Fatal("nothing should be committed")
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()
	base := `targets: {box: {x: 0, c: red}}` + "\n"
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown field", body: base + "speed: 2\n", want: "speed"},
		{name: "unknown target", body: base + "timelines: [{target: nope, property: x, from: 0, to: 1}]\n", want: "unknown target"},
		{name: "unknown property", body: base + "timelines: [{target: box, property: y, from: 0, to: 1}]\n", want: "no property"},
		{name: "bad duration", body: base + "timelines: [{target: box, property: x, from: 0, to: 1, duration: soon}]\n", want: "invalid duration"},
		{name: "bad easing", body: base + "easing: wobble\n", want: "unknown easing"},
		{name: "bad color", body: base + "timelines: [{target: box, property: c, from: red, to: notacolor}]\n", want: "to:"},
		{name: "bad kind", body: base + "timelines: [{target: box, property: x, kind: vector, from: 0, to: 1}]\n", want: "unknown kind"},
		{name: "bad number", body: base + "timelines: [{target: box, property: x, from: zero, to: 1}]\n", want: "want number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("doc.yaml", []byte(tt.body))
			if !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("err = %v, want ErrInvalidDocument", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestKindInference(t *testing.T) {
	t.Parallel()
	tests := []struct {
		initial any
		want    string
	}{
		{initial: 1.5, want: KindDouble},
		{initial: "teal", want: KindColor},
		{initial: "#00ff00", want: KindColor},
		{initial: []any{1.0, 2.0}, want: KindPoint},
		{initial: "caption", want: KindDouble},
	}
	for _, tt := range tests {
		if got := (TimelineSpec{}).kind(tt.initial); got != tt.want {
			t.Fatalf("kind(%v) = %s, want %s", tt.initial, got, tt.want)
		}
	}
	if got := (TimelineSpec{Kind: " Point "}).kind(1.0); got != KindPoint {
		t.Fatalf("explicit kind = %s", got)
	}
}

func TestLoadNamesDocumentAfterFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fade-in.json")
	body := `{"duration":"2s","auto_reverse":true,"easing":"sin_in_out","rate":"8ms",
		"targets":{"panel":{"alpha":1}},
		"timelines":[{"target":"panel","property":"alpha","from":1,"to":0,"auto_reverse":true}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "fade-in" || doc.Source != path {
		t.Fatalf("name=%q source=%q", doc.Name, doc.Source)
	}

	var sched fakeCommitter
	scene, err := doc.Build(nil, &sched)
	if err != nil {
		t.Fatal(err)
	}
	sb := scene.Storyboard
	if sb.Duration != 2*time.Second || !sb.AutoReverse || sb.Easing == nil {
		t.Fatalf("storyboard timing = %v %v", sb.Duration, sb.AutoReverse)
	}
	children := sb.Children()
	if len(children) != 1 || children[0].Timing().Duration != storyboard.DefaultDuration || !children[0].Timing().AutoReverse {
		t.Fatalf("children = %+v", children)
	}
	if err := sb.Begin(); err != nil {
		t.Fatal(err)
	}
	if sched.run.Length != 4*time.Second || sched.run.Rate != 8*time.Millisecond {
		t.Fatalf("length=%v rate=%v", sched.run.Length, sched.run.Rate)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v", err)
	}
}
