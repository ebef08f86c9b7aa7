package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRedirects parses the `_redirects` side-file format: one rule per
// line, `fromPath  toPath  status[!][  key=value ...]`, `#` comments and
// blank lines ignored.
func ParseRedirects(data []byte) ([]RedirectRule, error) {
	var out []RedirectRule
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("redirects line %d: expected at least from and to, got %q", i+1, line)
		}

		rule := RedirectRule{From: fields[0], To: fields[1]}
		rest := fields[2:]

		if len(rest) > 0 && !strings.Contains(rest[0], "=") {
			status := rest[0]
			rule.Force = strings.HasSuffix(status, "!")
			status = strings.TrimSuffix(status, "!")
			n, err := strconv.Atoi(status)
			if err != nil {
				return nil, fmt.Errorf("redirects line %d: invalid status %q", i+1, rest[0])
			}
			rule.Status = n
			rest = rest[1:]
		}

		for _, kv := range rest {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("redirects line %d: expected key=value, got %q", i+1, kv)
			}
			if rule.Params == nil {
				rule.Params = make(map[string]string)
			}
			rule.Params[key] = value
		}

		out = append(out, rule)
	}
	return out, nil
}

// ParseHeaders parses the `_headers` side-file format: an unindented path
// line opens a rule, indented `Name: value` lines populate it.
func ParseHeaders(data []byte) ([]HeaderRule, error) {
	var out []HeaderRule
	var current *HeaderRule

	for i, raw := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Only leading whitespace makes a line a header line; trailing
		// whitespace on a path line is meaningless.
		indented := raw[0] == ' ' || raw[0] == '\t'
		if !indented {
			out = append(out, HeaderRule{For: trimmed, Values: make(map[string]string)})
			current = &out[len(out)-1]
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("headers line %d: header %q precedes any path", i+1, trimmed)
		}
		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("headers line %d: expected Name: value, got %q", i+1, trimmed)
		}
		current.Values[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return out, nil
}
