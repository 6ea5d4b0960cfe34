// Package template renders the Jinja-style dialect used by intent
// templates and termination conditions: `{{ dotted.field.access }}` resolved
// against a JSON-shaped context map. No Jinja-family engine appears in any
// retrieved example's dependency graph, so this is built on text/template,
// which already resolves dotted paths through nested map[string]interface{}
// values — the one ambient concern carried on the standard library in this
// module (see DESIGN.md).
package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// RenderError reports a template that failed to parse or execute.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template render error: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Render resolves tmpl's `{{ dotted.field }}` placeholders against ctx.
// Missing keys render as empty string rather than erroring, matching the
// Jinja convention of silently dropping undefined variables; malformed
// template syntax is a RenderError.
func Render(tmpl string, ctx map[string]interface{}) (string, error) {
	t, err := template.New("intent").Option("missingkey=zero").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return "", &RenderError{Template: tmpl, Err: err}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", &RenderError{Template: tmpl, Err: err}
	}
	// text/template prints a missing map[string]interface{} key as
	// "<no value>" even under missingkey=zero.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// Placeholders returns the set of distinct `{{ dotted.field }}` expressions
// referenced by tmpl, in first-seen order, without evaluating them. Used by
// the Strategy Engine's semantic matcher to find placeholders that didn't
// resolve against the context's top-level keys.
func Placeholders(tmpl string) []string {
	var out []string
	seen := map[string]bool{}
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		rest = rest[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			break
		}
		expr := strings.TrimSpace(rest[:end])
		expr = strings.TrimPrefix(expr, ".")
		if expr != "" && !seen[expr] {
			seen[expr] = true
			out = append(out, expr)
		}
		rest = rest[end+2:]
	}
	return out
}

// RenderTrimmedLower renders tmpl and returns the trimmed, lowercased result,
// the comparison form §4.3.5 uses for Terminate condition evaluation
// ("true"/"false" case-insensitive).
func RenderTrimmedLower(tmpl string, ctx map[string]interface{}) (string, error) {
	out, err := Render(tmpl, ctx)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(out)), nil
}

var funcMap = template.FuncMap{
	"default": func(def, val interface{}) interface{} {
		if val == nil || val == "" {
			return def
		}
		return val
	},
}
