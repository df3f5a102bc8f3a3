// Package eval evaluates user expressions against semantic graph nodes:
// expr-lang predicates for filtering and Go templates for custom output.
package eval

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
)

// Vars exposes a node to expressions and templates. Keys are stable API.
func Vars(n *graph.Node) map[string]any {
	return map[string]any{
		"id":        n.ID,
		"name":      n.DisplayName,
		"type":      string(n.Type),
		"result":    string(n.Status.Result),
		"state":     string(n.Status.State),
		"duration":  n.Timing.TotalDurationMillis,
		"pause":     n.Timing.PauseDurationMillis,
		"start":     n.Timing.StartTimeMillis,
		"synthetic": n.IsSynthetic(),
		"parents":   n.Parents(),
		"edges":     n.Edges(),
		"cause":     n.CauseOfBlockage,
	}
}

// Filter is a compiled boolean predicate over node variables.
type Filter struct {
	src     string
	program *vm.Program
}

// Compile parses a predicate such as `type == "STAGE" && result == "FAILURE"`.
// An empty predicate matches every node.
func Compile(src string) (*Filter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return &Filter{}, nil
	}
	env := Vars(&graph.Node{})
	program, err := expr.Compile(src, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", src, err)
	}
	return &Filter{src: src, program: program}, nil
}

// String returns the source of the predicate.
func (f *Filter) String() string { return f.src }

// Match evaluates the predicate for n.
func (f *Filter) Match(n *graph.Node) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, Vars(n))
	if err != nil {
		return false, fmt.Errorf("eval filter %q: %w", f.src, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("filter %q did not return bool (got %T: %v)", f.src, out, out)
	}
	return ok, nil
}

// Apply keeps the nodes matching the predicate, in order.
func (f *Filter) Apply(nodes []*graph.Node) ([]*graph.Node, error) {
	out := make([]*graph.Node, 0, len(nodes))
	for _, n := range nodes {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Resolve renders a template against a variable scope.
// Example: Resolve("{{ .name }} {{ ms .duration }}", vars) → "build 1.5s"
func Resolve(tmpl string, vars map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil // fast path for literals
	}

	t, err := template.New("").Funcs(builtinFuncs()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("template eval: %w", err)
	}
	return buf.String(), nil
}

// Render applies Resolve to one node.
func Render(tmpl string, n *graph.Node) (string, error) {
	return Resolve(tmpl, Vars(n))
}

// builtinFuncs provides template functions for output formats.
func builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"eq": func(a, b any) bool {
			return fmt.Sprint(a) == fmt.Sprint(b)
		},
		"ne": func(a, b any) bool {
			return fmt.Sprint(a) != fmt.Sprint(b)
		},
		"contains": func(s, substr any) bool {
			return strings.Contains(fmt.Sprint(s), fmt.Sprint(substr))
		},
		"hasPrefix": func(s, prefix any) bool {
			return strings.HasPrefix(fmt.Sprint(s), fmt.Sprint(prefix))
		},
		"lower": func(s any) string {
			return strings.ToLower(fmt.Sprint(s))
		},
		"default": func(def, val any) any {
			if val == nil || fmt.Sprint(val) == "" {
				return def
			}
			return val
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"ms": FormatMillis,
	}
}

// FormatMillis renders a millisecond count as a rounded duration.
func FormatMillis(v any) string {
	var ms int64
	switch n := v.(type) {
	case int64:
		ms = n
	case int:
		ms = int64(n)
	case float64:
		ms = int64(n)
	}
	d := time.Duration(ms) * time.Millisecond
	switch {
	case d < time.Second:
		return d.String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
