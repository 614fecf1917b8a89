package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"funcagent/internal/domain"
)

// Decision is the parsed result of one reasoning turn.
type Decision struct {
	Reasoning  string
	Invocation *domain.ToolInvocation
	// Degraded is set when the reply contained a structured object that could
	// not be decoded even after repair; Reasoning then holds the raw reply.
	Degraded bool
}

// HasInvocation reports whether the model asked for a tool.
func (d Decision) HasInvocation() bool { return d.Invocation != nil }

// Interpret converts free-form model text into a Decision. It never fails:
// anything it cannot make sense of becomes reasoning with no invocation.
//
// The structured object is the text between the first '{' and the last '}'.
// Recognised fields are "reasoning", "tool" and "arguments" ("parameters" is
// accepted as an alias for the latter). Argument values of any JSON type are
// coerced to text.
func Interpret(content string) Decision {
	content = strings.TrimSpace(stripCodeFence(content))

	candidate, ok := extractObject(content)
	if !ok {
		return Decision{Reasoning: content}
	}

	fields, err := decodeObject(candidate)
	if err != nil {
		return Decision{Reasoning: content, Degraded: true}
	}

	var d Decision
	if v, ok := fields["reasoning"]; ok {
		d.Reasoning = coerceText(v)
	}

	name := strings.TrimSpace(coerceText(fields["tool"]))
	if name == "" {
		if d.Reasoning == "" {
			d.Reasoning = content
		}
		return d
	}

	d.Invocation = &domain.ToolInvocation{
		Name:      name,
		Arguments: coerceArgs(coalesce(fields["arguments"], fields["parameters"])),
	}
	return d
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) >= 3 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return strings.Join(lines[1:len(lines)-1], "\n")
	}
	return content
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeObject decodes the first JSON object in raw. Invalid escape sequences
// are dropped first, then jsonrepair gets a turn before giving up.
func decodeObject(raw string) (map[string]any, error) {
	fields, err := decodeFirst(raw)
	if err == nil {
		return fields, nil
	}
	if fields, err2 := decodeFirst(sanitizeJSONEscapes(raw)); err2 == nil {
		return fields, nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("decode: %w (repair: %v)", err, repairErr)
	}
	return decodeFirst(repaired)
}

func decodeFirst(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	return fields, nil
}

// coerceArgs turns an "arguments" value into Args. A JSON object encoded as a
// string (the OpenAI function-call convention) is decoded first.
func coerceArgs(v any) domain.Args {
	args := domain.Args{}
	if s, ok := v.(string); ok {
		if nested, err := decodeFirst(s); err == nil {
			v = nested
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return args
	}
	for k, val := range m {
		args[k] = coerceText(val)
	}
	return args
}

// coerceText renders any decoded JSON value as text: strings verbatim, numbers
// as written, booleans as true/false, null as "", and composites as compact JSON.
func coerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// coalesce returns the first non-nil value.
func coalesce(a, b any) any {
	if a != nil {
		return a
	}
	return b
}

// sanitizeJSONEscapes fixes invalid JSON escape sequences produced by some LLMs.
// Valid JSON escapes: \", \\, \/, \b, \f, \n, \r, \t, \uXXXX.
// Invalid ones (e.g. \% or C:\path) are escaped so the backslash survives
// decoding.
func sanitizeJSONEscapes(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' && (i == 0 || s[i-1] != '\\') {
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if inString && ch == '\\' && i+1 < len(s) {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				buf.WriteByte(ch)
				buf.WriteByte(next)
				i++
			default:
				buf.WriteString(`\\`)
			}
			continue
		}
		buf.WriteByte(ch)
	}
	return buf.String()
}
