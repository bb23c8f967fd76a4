// Package sanitize implements allow-list based HTML cleaning for untrusted
// input flowing through the security pipeline.
package sanitize

import (
	"fmt"
	"net/url"
	"strings"
)

// allowedTags are the only elements preserved by Input.
var allowedTags = map[string]bool{
	"b":      true,
	"i":      true,
	"em":     true,
	"strong": true,
	"a":      true,
	"p":      true,
	"br":     true,
}

// swallowTags are stripped together with their entire contents.
var swallowTags = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"noscript": true,
	"textarea": true,
	"title":    true,
}

// allowedSchemes are the URI schemes accepted in anchor hrefs.
var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// attrEscaper leaves slashes intact so URLs survive in attribute values.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML entity-escapes every markup-significant character.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// ValidateURL reports whether raw parses and carries an allowed scheme.
// Malformed and scheme-relative URLs are rejected.
func ValidateURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return allowedSchemes[strings.ToLower(u.Scheme)]
}

// Input cleans an HTML fragment: only allow-listed tags survive, anchors
// keep only href/target/rel (href scheme-checked), and the contents of
// script-like elements are dropped entirely. Disallowed tags are stripped
// but their text content is preserved.
func Input(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c != '<' {
			b.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			// Dangling bracket, never a tag
			b.WriteString(EscapeHTML(s[i:]))
			break
		}

		inner := s[i+1 : i+end]
		i += end + 1

		name, attrs, closing := parseTag(inner)
		if name == "" {
			b.WriteString(EscapeHTML("<" + inner + ">"))
			continue
		}

		if swallowTags[name] {
			if !closing {
				i = skipSwallowedContent(s, i, name)
			}
			continue
		}

		if !allowedTags[name] {
			// Strip the tag, keep its content
			continue
		}

		if closing {
			b.WriteString("</" + name + ">")
			continue
		}

		switch name {
		case "a":
			writeAnchor(&b, attrs)
		case "br":
			b.WriteString("<br>")
		default:
			b.WriteString("<" + name + ">")
		}
	}
	return b.String()
}

// Props sanitizes every string-valued property of a map. Keys containing
// "html" are treated as raw-HTML carriers and go through Input; all other
// strings are fully escaped. Nested maps and slices are walked.
func Props(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = sanitizeKeyed(k, v)
	}
	return out
}

// Value deep-sanitizes an arbitrary decoded JSON value: strings escaped,
// maps and slices walked recursively, other types untouched.
func Value(v interface{}) interface{} {
	return sanitizeKeyed("", v)
}

func sanitizeKeyed(key string, v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if strings.Contains(strings.ToLower(key), "html") {
			return Input(t)
		}
		return EscapeHTML(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = sanitizeKeyed(k, vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, vv := range t {
			out = append(out, sanitizeKeyed(key, vv))
		}
		return out
	default:
		return v
	}
}

type attr struct {
	name  string
	value string
}

// parseTag splits the inside of a <...> pair into a lowercase tag name,
// its attributes, and whether it is a closing tag. An empty name means the
// bracket pair was not a tag at all.
func parseTag(inner string) (string, []attr, bool) {
	body := strings.TrimSpace(inner)
	closing := false
	if strings.HasPrefix(body, "/") {
		closing = true
		body = strings.TrimSpace(body[1:])
	}
	body = strings.TrimSuffix(body, "/")

	if body == "" {
		return "", nil, false
	}

	nameEnd := len(body)
	for idx, r := range body {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			nameEnd = idx
			break
		}
	}

	name := strings.ToLower(body[:nameEnd])
	if !isTagName(name) {
		return "", nil, false
	}

	if closing || nameEnd == len(body) {
		return name, nil, closing
	}

	return name, parseAttrs(body[nameEnd:]), false
}

func isTagName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !valid {
			return false
		}
	}
	return true
}

// parseAttrs handles key="value", key='value', key=value, and bare keys.
func parseAttrs(s string) []attr {
	var attrs []attr
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}

		start := i
		for i < len(s) && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		name := strings.ToLower(s[start:i])
		if name == "" {
			i++
			continue
		}

		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) || s[i] != '=' {
			attrs = append(attrs, attr{name: name})
			continue
		}
		i++ // consume '='
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			attrs = append(attrs, attr{name: name})
			break
		}

		var value string
		if s[i] == '"' || s[i] == '\'' {
			quote := s[i]
			i++
			vStart := i
			for i < len(s) && s[i] != quote {
				i++
			}
			value = s[vStart:i]
			if i < len(s) {
				i++ // consume closing quote
			}
		} else {
			vStart := i
			for i < len(s) && !isSpace(s[i]) {
				i++
			}
			value = s[vStart:i]
		}
		attrs = append(attrs, attr{name: name, value: value})
	}
	return attrs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipSwallowedContent advances past the matching close tag of a
// content-swallowing element, or to the end of input if unclosed.
func skipSwallowedContent(s string, from int, name string) int {
	lower := strings.ToLower(s[from:])
	idx := strings.Index(lower, "</"+name)
	if idx < 0 {
		return len(s)
	}
	rest := s[from+idx:]
	gt := strings.IndexByte(rest, '>')
	if gt < 0 {
		return len(s)
	}
	return from + idx + gt + 1
}

func writeAnchor(b *strings.Builder, attrs []attr) {
	b.WriteString("<a")
	for _, at := range attrs {
		switch at.name {
		case "href":
			if ValidateURL(at.value) {
				fmt.Fprintf(b, ` href="%s"`, attrEscaper.Replace(at.value))
			}
		case "target", "rel":
			if at.value != "" {
				fmt.Fprintf(b, ` %s="%s"`, at.name, attrEscaper.Replace(at.value))
			}
		}
	}
	b.WriteString(">")
}
