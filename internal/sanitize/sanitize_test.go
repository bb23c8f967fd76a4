package sanitize_test

import (
	"strings"
	"testing"

	"github.com/securedbank/sentinel/internal/sanitize"
	"github.com/stretchr/testify/assert"
)

func TestInputStripsScriptKeepsParagraph(t *testing.T) {
	out := sanitize.Input("<script>alert(1)</script><p>hi</p>")

	assert.Contains(t, out, "<p>hi</p>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert(1)")
}

func TestInputAllowListedTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello world", "hello world"},
		{"bold survives", "<b>bold</b>", "<b>bold</b>"},
		{"emphasis survives", "<em>x</em> and <strong>y</strong>", "<em>x</em> and <strong>y</strong>"},
		{"br survives", "line<br>break", "line<br>break"},
		{"self-closed br normalized", "line<br/>break", "line<br>break"},
		{"div stripped, content kept", "<div>content</div>", "content"},
		{"span stripped inside p", "<p><span>text</span></p>", "<p>text</p>"},
		{"uppercase tags normalized", "<P>Hi</P>", "<p>Hi</p>"},
		{"style contents dropped", "<style>body{color:red}</style>after", "after"},
		{"iframe dropped", "<iframe src=\"https://evil.example\"></iframe>safe", "safe"},
		{"event handler attribute dropped", `<p onclick="alert(1)">hi</p>`, "<p>hi</p>"},
		{"unclosed script swallows rest", "<script>alert(1)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize.Input(tt.input))
		})
	}
}

func TestInputAnchorAttributes(t *testing.T) {
	out := sanitize.Input(`<a href="https://securedbank.example/alerts" target="_blank" rel="noopener" id="x">alerts</a>`)

	assert.Contains(t, out, `href="https://securedbank.example/alerts"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, `rel="noopener"`)
	assert.NotContains(t, out, "id=")
}

func TestInputRejectsJavascriptScheme(t *testing.T) {
	out := sanitize.Input(`<a href="javascript:alert(1)">click</a>`)

	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, "<a>click</a>")
}

func TestEscapeHTML(t *testing.T) {
	out := sanitize.EscapeHTML(`<img src="x" onerror='alert(1)'/>`)

	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.NotContains(t, out, `"`)
	assert.Contains(t, out, "&lt;img")
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://securedbank.example", true},
		{"http://intranet.local/page", true},
		{"mailto:soc@securedbank.example", true},
		{"javascript:alert(1)", false},
		{"data:text/html;base64,xyz", false},
		{"/relative/path", false},
		{"http://%zz-malformed", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize.ValidateURL(tt.raw), "url: %q", tt.raw)
	}
}

func TestPropsEscapesStringsAndSanitizesHTMLKeys(t *testing.T) {
	in := map[string]interface{}{
		"title":       "<b>Alert</b>",
		"descHtml":    "<script>x()</script><p>describe</p>",
		"count":       float64(3),
		"nested":      map[string]interface{}{"note": "a & b"},
		"tags":        []interface{}{"<i>one</i>", "two"},
		"messageHTML": "<em>ok</em>",
	}

	out := sanitize.Props(in)

	assert.Equal(t, "&lt;b&gt;Alert&lt;&#x2F;b&gt;", out["title"])
	assert.Equal(t, "<p>describe</p>", out["descHtml"])
	assert.Equal(t, "<em>ok</em>", out["messageHTML"])
	assert.Equal(t, float64(3), out["count"])

	nested := out["nested"].(map[string]interface{})
	assert.Equal(t, "a &amp; b", nested["note"])

	tags := out["tags"].([]interface{})
	assert.Equal(t, "&lt;i&gt;one&lt;&#x2F;i&gt;", tags[0])
	assert.Equal(t, "two", tags[1])
}

func TestValueWalksDeepStructures(t *testing.T) {
	in := []interface{}{
		"<script>alert(1)</script>",
		map[string]interface{}{"inner": []interface{}{"<b>x</b>"}},
		true,
		nil,
	}

	out := sanitize.Value(in).([]interface{})

	assert.False(t, strings.Contains(out[0].(string), "<script>"))
	inner := out[1].(map[string]interface{})["inner"].([]interface{})
	assert.Equal(t, "&lt;b&gt;x&lt;&#x2F;b&gt;", inner[0])
	assert.Equal(t, true, out[2])
	assert.Nil(t, out[3])
}
