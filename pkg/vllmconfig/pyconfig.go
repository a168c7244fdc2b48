package vllmconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// SingleNodeConfig is the subset of the upstream single-node nightly test
// module the generator consumes: the top-level assignments describing the
// model matrix, the server port and the server invocation.
type SingleNodeConfig struct {
	Models          []string
	TensorParallels []int
	DataParallels   []int
	Port            int
	ServerArgs      []string
	Env             []EnvVar
}

// ParseSingleNodeConfig reads the relevant top-level assignments out of the
// upstream Python test file. Literal lists, ints, strings and dicts are
// understood; str(NAME) elements become STR_<NAME> tokens that the resolver
// later substitutes with resolved values. Assignments it does not know about
// are ignored.
func ParseSingleNodeConfig(content string) (*SingleNodeConfig, error) {
	cfg := &SingleNodeConfig{}
	lines := strings.Split(content, "\n")

	for i := 0; i < len(lines); i++ {
		name, value, ok := splitAssignment(lines[i])
		if !ok {
			continue
		}
		// Fold continuation lines until the brackets balance.
		for bracketDepth(value) > 0 && i+1 < len(lines) {
			i++
			value += "\n" + stripComment(lines[i])
		}

		var err error
		switch name {
		case "MODELS":
			cfg.Models, err = parseStringList(value)
		case "TENSOR_PARALLELS":
			cfg.TensorParallels, err = parseIntList(value)
		case "DATA_PARALLELS":
			cfg.DataParallels, err = parseIntList(value)
		case "PORT":
			cfg.Port, err = strconv.Atoi(strings.TrimSpace(value))
		case "server_args":
			cfg.ServerArgs, err = parseTokenList(value)
		case "env_dict":
			cfg.Env, err = parseEnvDict(value)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s in reference config: %v", ErrConfig, name, err)
		}
	}
	return cfg, nil
}

// splitAssignment recognizes a top-level `NAME = value` line. Indented lines,
// comments and comparison operators are rejected.
func splitAssignment(line string) (name, value string, ok bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '#' {
		return "", "", false
	}
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return "", "", false
	}
	if eq+1 < len(line) && line[eq+1] == '=' {
		return "", "", false
	}
	switch line[eq-1] {
	case '!', '<', '>', '+', '-', '*', '/', '%':
		return "", "", false
	}
	name = strings.TrimSpace(line[:eq])
	if !isIdentifier(name) {
		return "", "", false
	}
	return name, stripComment(line[eq+1:]), true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// stripComment removes a trailing # comment that sits outside string quotes.
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return strings.TrimRight(s[:i], " \t")
		}
	}
	return strings.TrimRight(s, " \t\r")
}

// bracketDepth is the net count of unclosed brackets outside string quotes.
func bracketDepth(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}
	return depth
}

// splitTopLevel splits s on sep at bracket depth zero, outside string quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// unquotePy strips matching single or double quotes and resolves the common
// escapes. The second return reports whether the input was quoted at all.
func unquotePy(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || (s[0] != '\'' && s[0] != '"') || s[len(s)-1] != s[0] {
		return s, false
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

func listBody(value string) (string, error) {
	v := strings.TrimSpace(value)
	if !strings.HasPrefix(v, "[") || !strings.HasSuffix(v, "]") {
		return "", fmt.Errorf("expected a list literal, got %q", v)
	}
	return v[1 : len(v)-1], nil
}

func parseStringList(value string) ([]string, error) {
	body, err := listBody(value)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		s, quoted := unquotePy(item)
		if !quoted {
			return nil, fmt.Errorf("expected a string literal, got %q", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseIntList(value string) ([]int, error) {
	body, err := listBody(value)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("expected an int literal, got %q", item)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseTokenList reads the server_args list. Quoted entries keep their text,
// str(NAME) calls become STR_<NAME> placeholder tokens, ints pass through as
// decimal strings and bare identifiers are kept verbatim.
func parseTokenList(value string) ([]string, error) {
	body, err := listBody(value)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if s, quoted := unquotePy(item); quoted {
			out = append(out, s)
			continue
		}
		if inner, ok := strings.CutPrefix(item, "str("); ok && strings.HasSuffix(inner, ")") {
			name := strings.TrimSpace(strings.TrimSuffix(inner, ")"))
			if !isIdentifier(name) {
				return nil, fmt.Errorf("unsupported str() argument %q", name)
			}
			out = append(out, "STR_"+strings.ToUpper(name))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func parseEnvDict(value string) ([]EnvVar, error) {
	v := strings.TrimSpace(value)
	if !strings.HasPrefix(v, "{") || !strings.HasSuffix(v, "}") {
		return nil, fmt.Errorf("expected a dict literal, got %q", v)
	}
	body := v[1 : len(v)-1]

	var out []EnvVar
	for _, item := range splitTopLevel(body, ',') {
		if strings.TrimSpace(item) == "" {
			continue
		}
		kv := splitTopLevel(item, ':')
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected a key: value pair, got %q", item)
		}
		key, quoted := unquotePy(kv[0])
		if !quoted {
			return nil, fmt.Errorf("expected a string key, got %q", kv[0])
		}
		val, _ := unquotePy(kv[1])
		out = append(out, EnvVar{Name: key, Value: val})
	}
	return out, nil
}
