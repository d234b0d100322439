package runner

import (
	"bytes"
	"math/rand"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// TemplateEngine expands placeholders inside payload values so every
// iteration can carry unique data ({{uuid}}, {{seq}}, {{loop}}, randomInt,
// randomChoice).
type TemplateEngine struct {
	funcMap template.FuncMap
}

// TemplateData is the per-iteration context.
type TemplateData struct {
	Seq  int
	Loop int
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{}
	e.funcMap = template.FuncMap{
		"uuid":         func() string { return uuid.New().String() },
		"randomInt":    func(min, max int) int { return rand.Intn(max-min) + min },
		"randomChoice": randomChoice,
	}
	return e
}

// preprocess converts the naked variables {{seq}} and {{loop}} to Go template
// field syntax.
func (e *TemplateEngine) preprocess(input string) string {
	s := strings.ReplaceAll(input, "{{seq}}", "{{.Seq}}")
	return strings.ReplaceAll(s, "{{loop}}", "{{.Loop}}")
}

// ExpandString renders one payload string. On any template error the input is
// returned untouched, so payloads that merely look like templates still go
// out as-is.
func (e *TemplateEngine) ExpandString(s string, data TemplateData) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	t, err := template.New("payload").Funcs(e.funcMap).Parse(e.preprocess(s))
	if err != nil {
		return s
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return s
	}
	return buf.String()
}

// ExpandPayload walks a decoded payload tree and expands every string leaf.
func (e *TemplateEngine) ExpandPayload(v any, data TemplateData) any {
	switch val := v.(type) {
	case string:
		return e.ExpandString(val, data)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = e.ExpandPayload(inner, data)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = e.ExpandPayload(inner, data)
		}
		return out
	default:
		return v
	}
}

func randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.Intn(len(choices))]
}
