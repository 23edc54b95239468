package data

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-wolf/pkg/dom"
)

func TestParseBinding(t *testing.T) {
	b, err := ParseBinding("Hello {user/name}, you have {items/^count} items{}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	type view struct {
		Bound bool
		Text  string
	}
	var got []view
	for _, part := range b.Parts() {
		got = append(got, view{Bound: part.Bound, Text: part.Text})
	}
	want := []view{
		{Text: "Hello "},
		{Bound: true, Text: "user/name"},
		{Text: ", you have "},
		{Bound: true, Text: "items/^count"},
		{Text: " items"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}
	if b.Single() {
		t.Fatalf("expected composite binding")
	}
	if !MustParseBinding("{a}").Single() {
		t.Fatalf("expected single binding")
	}
}

func TestParseBindingRejectsUnbalancedBraces(t *testing.T) {
	for _, input := range []string{"{a", "a}", "{a{b}}", "x {y} }", "{{a}}"} {
		if _, err := ParseBinding(input); !errors.Is(err, ErrUnterminatedBinding) {
			t.Fatalf("parse %q: expected ErrUnterminatedBinding, got %v", input, err)
		}
	}
	if _, err := ParseBinding("{a/^bad(}"); !errors.Is(err, ErrMalformedProcessorCall) {
		t.Fatalf("expected processor syntax to be validated, got %v", err)
	}
}

func TestBindingReadConcatenation(t *testing.T) {
	b := MustParseBinding("Hello {user/name}!")

	m := NewModel(map[string]any{"user": map[string]any{"name": "Ann"}})
	got, err := b.ReadString(m, Context{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "Hello Ann!" {
		t.Fatalf("expected %q, got %q", "Hello Ann!", got)
	}

	empty := NewModel(nil)
	got, err = b.ReadString(empty, Context{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "Hello !" {
		t.Fatalf("expected undefined part to read empty, got %q", got)
	}

	raw, err := MustParseBinding("{a}{b}").Read(empty, Context{})
	if err != nil || raw != nil {
		t.Fatalf("expected all-undefined binding to read nil, got %v (err=%v)", raw, err)
	}

	single, err := MustParseBinding("{n}").Read(NewModel(map[string]any{"n": 3}), Context{})
	if err != nil || single != 3 {
		t.Fatalf("expected raw value for single binding, got %#v (err=%v)", single, err)
	}
}

func TestBindTextFollowsModel(t *testing.T) {
	doc := dom.NewDocument()
	text := dom.CreateText("")
	doc.Body().AppendChild(text)

	m := NewModel(map[string]any{"user": map[string]any{"name": "Ann"}})
	if _, err := MustParseBinding("Hi {user/name}").BindText(m, nil, text); err != nil {
		t.Fatalf("bind text: %v", err)
	}
	if text.Data != "Hi Ann" {
		t.Fatalf("expected initial paint, got %q", text.Data)
	}

	if err := m.SetProperty("user/name", "Bo", Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if text.Data != "Hi Bo" {
		t.Fatalf("expected refresh on nested write, got %q", text.Data)
	}

	if err := m.SetProperty("user", map[string]any{"name": "Cy"}, Context{}); err != nil {
		t.Fatalf("set parent: %v", err)
	}
	if text.Data != "Hi Cy" {
		t.Fatalf("expected refresh on ancestor write, got %q", text.Data)
	}
}

func TestBindTextResolvesThroughScope(t *testing.T) {
	doc := dom.NewDocument()
	text := dom.CreateText("")
	doc.Body().AppendChild(text)

	scope := ScopeFunc(func(_ *dom.Node, path string) (string, error) {
		return "users/0/" + path, nil
	})
	m := NewModel(map[string]any{"users": []any{map[string]any{"name": "Ann"}}})
	if _, err := MustParseBinding("{name}").BindText(m, scope, text); err != nil {
		t.Fatalf("bind text: %v", err)
	}
	if text.Data != "Ann" {
		t.Fatalf("expected scoped read, got %q", text.Data)
	}
	if got := m.ExecutorCount("users/0/name"); got != 1 {
		t.Fatalf("expected executor under resolved path, got %d", got)
	}
}

func TestBindAttributeValues(t *testing.T) {
	doc := dom.NewDocument()
	input := dom.CreateElement("input")
	doc.Body().AppendChild(input)

	m := NewModel(map[string]any{"off": false})
	if _, err := MustParseBinding("{off}").BindAttribute(m, nil, input, "disabled"); err != nil {
		t.Fatalf("bind attribute: %v", err)
	}
	if input.HasAttribute("disabled") {
		t.Fatalf("expected false to remove the attribute")
	}

	if err := m.SetProperty("off", true, Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := input.GetAttribute("disabled"); !ok || v != "" {
		t.Fatalf("expected true to set empty attribute, got %q (present=%v)", v, ok)
	}

	if err := m.SetProperty("off", "soon", Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := input.Attr("disabled"); got != "soon" {
		t.Fatalf("expected string value, got %q", got)
	}

	if err := m.SetProperty("off", nil, Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if input.HasAttribute("disabled") {
		t.Fatalf("expected nil to remove the attribute")
	}
}

func TestBindingRegistersBeforeProcessors(t *testing.T) {
	procs := NewProcessors()
	procs.MustRegister("count", ProcessorFunc(func(current any, _ Context) (any, error) {
		n := 0
		_, err := Each(current, func(string, any) error {
			n++
			return nil
		})
		return n, err
	}))

	doc := dom.NewDocument()
	text := dom.CreateText("")
	doc.Body().AppendChild(text)

	m := NewModel(map[string]any{"items": []any{"a"}}, WithProcessors(procs))
	if _, err := MustParseBinding("{items/^count} items").BindText(m, nil, text); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got := m.ExecutorCount("items"); got != 1 {
		t.Fatalf("expected registration before processor segment, got %d", got)
	}
	if err := m.SetProperty("items", []any{"a", "b", "c"}, Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if text.Data != "3 items" {
		t.Fatalf("expected processor view to refresh, got %q", text.Data)
	}
}

func TestBindExecutorAndWriteBack(t *testing.T) {
	doc := dom.NewDocument()
	input := dom.CreateElement("input")
	doc.Body().AppendChild(input)

	m := NewModel(map[string]any{"form": map[string]any{"email": "a@b.c"}})
	b := MustParseBinding("{form/email}")
	var painted []any
	_, err := b.BindExecutor(m, nil, input, func(read ReadFunc) error {
		v, err := read()
		painted = append(painted, v)
		return err
	}, nil)
	if err != nil {
		t.Fatalf("bind executor: %v", err)
	}

	if err := b.WriteBack(m, nil, input, "x@y.z"); err != nil {
		t.Fatalf("write back: %v", err)
	}
	if diff := cmp.Diff([]any{"a@b.c", "x@y.z"}, painted); diff != "" {
		t.Fatalf("paints mismatch (-want +got):\n%s", diff)
	}

	if err := MustParseBinding("to {form/email}").WriteBack(m, nil, input, "q"); err == nil {
		t.Fatalf("expected composite binding write-back to fail")
	}
}

func listItems(parent *dom.Node) []string {
	var out []string
	for _, child := range parent.Children() {
		out = append(out, child.Tag+":"+child.TextContent())
	}
	return out
}

func TestBindRepeaterRebuildsBeforeAnchor(t *testing.T) {
	doc := dom.NewDocument()
	list := dom.CreateElement("ul")
	first := dom.CreateElement("li")
	first.AppendChild(dom.CreateText("head"))
	anchor := dom.CreateElement("li")
	anchor.AppendChild(dom.CreateText("tail"))
	list.AppendChild(first)
	list.AppendChild(anchor)
	doc.Body().AppendChild(list)

	m := NewModel(map[string]any{"items": []any{"a", "b", "c"}})
	var contexts []string
	fill := func(parent *dom.Node, contextPath string) ([]*dom.Node, error) {
		contexts = append(contexts, contextPath)
		v, err := m.GetProperty(contextPath, Context{})
		if err != nil {
			return nil, err
		}
		item := dom.CreateElement("li")
		item.AppendChild(dom.CreateText(Stringify(v)))
		return []*dom.Node{item}, nil
	}

	if _, err := MustParseBinding("{items}").BindRepeater(m, nil, list, anchor, fill); err != nil {
		t.Fatalf("bind repeater: %v", err)
	}
	want := []string{"li:head", "li:a", "li:b", "li:c", "li:tail"}
	if diff := cmp.Diff(want, listItems(list)); diff != "" {
		t.Fatalf("initial render mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"items/0", "items/1", "items/2"}, contexts); diff != "" {
		t.Fatalf("context paths mismatch (-want +got):\n%s", diff)
	}

	if err := m.SetProperty("items", []any{"x"}, Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	want = []string{"li:head", "li:x", "li:tail"}
	if diff := cmp.Diff(want, listItems(list)); diff != "" {
		t.Fatalf("rebuild mismatch (-want +got):\n%s", diff)
	}
	if list.LastChild != anchor {
		t.Fatalf("expected anchor to stay last")
	}

	if err := m.SetProperty("items", map[string]any{"k2": "two", "k1": "one"}, Context{}); err != nil {
		t.Fatalf("set map: %v", err)
	}
	want = []string{"li:head", "li:one", "li:two", "li:tail"}
	if diff := cmp.Diff(want, listItems(list)); diff != "" {
		t.Fatalf("map render mismatch (-want +got):\n%s", diff)
	}
}

func TestBindRepeaterAppendsWithoutAnchor(t *testing.T) {
	doc := dom.NewDocument()
	list := dom.CreateElement("ul")
	doc.Body().AppendChild(list)

	m := NewModel(map[string]any{"items": []any{1, 2}})
	fill := func(_ *dom.Node, contextPath string) ([]*dom.Node, error) {
		return []*dom.Node{dom.CreateComment(contextPath)}, nil
	}
	if _, err := MustParseBinding("{items}").BindRepeater(m, nil, list, nil, fill); err != nil {
		t.Fatalf("bind repeater: %v", err)
	}
	var got []string
	for _, child := range list.ChildNodes() {
		got = append(got, child.Data)
	}
	if diff := cmp.Diff([]string{"items/0", "items/1"}, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestBindRepeaterDispose(t *testing.T) {
	doc := dom.NewDocument()
	list := dom.CreateElement("ul")
	doc.Body().AppendChild(list)

	m := NewModel(map[string]any{"items": []any{1, 2}})
	fills := 0
	fill := func(_ *dom.Node, contextPath string) ([]*dom.Node, error) {
		fills++
		return []*dom.Node{dom.CreateComment(contextPath)}, nil
	}
	exec, err := MustParseBinding("{items}").BindRepeater(m, nil, list, nil, fill)
	if err != nil {
		t.Fatalf("bind repeater: %v", err)
	}

	placeholder := dom.CreateComment("repeat")
	placeholder.SetExt(exec)
	DisposeNode(placeholder)
	DisposeNode(placeholder)

	if !exec.Disposed() {
		t.Fatalf("expected executor to be disposed")
	}
	if list.FirstChild != nil {
		t.Fatalf("expected repeated items to be removed")
	}
	if err := m.SetProperty("items", []any{3}, Context{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if fills != 2 {
		t.Fatalf("disposed repeater must not rebuild, filled %d times", fills)
	}
	if got := m.ExecutorCount("items"); got != 0 {
		t.Fatalf("expected disposed executor to be pruned, got %d", got)
	}
}

func TestBindRepeaterRejectsComposedBindings(t *testing.T) {
	m := NewModel(nil)
	parent := dom.CreateElement("ul")
	fill := func(*dom.Node, string) ([]*dom.Node, error) { return nil, nil }
	for _, src := range []string{"{a}{b}", "x {a}", "{a/^count}"} {
		_, err := MustParseBinding(src).BindRepeater(m, nil, parent, nil, fill)
		if !errors.Is(err, ErrComposedRepeater) {
			t.Fatalf("repeater %q: expected ErrComposedRepeater, got %v", src, err)
		}
		if !strings.Contains(err.Error(), src) {
			t.Fatalf("expected error to name the binding, got %v", err)
		}
	}
}
