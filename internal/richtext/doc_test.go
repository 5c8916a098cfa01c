package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	blank := Doc{Type: "doc", Content: []Doc{{Type: "paragraph", Content: []Doc{{Type: "text", Text: "   "}}}}}
	image := Doc{Type: "doc", Content: []Doc{{Type: "image", Attrs: map[string]any{"src": "/a.png"}}}}
	tests := []struct {
		name string
		doc  *Doc
		want bool
	}{
		{name: "nil", doc: nil, want: true},
		{name: "no content", doc: &Doc{Type: "doc"}, want: true},
		{name: "whitespace only", doc: &blank, want: true},
		{name: "image only", doc: &image, want: false},
		{name: "text", doc: ptr(Paragraph("printer jam")), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.doc))
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	doc := Paragraph("VPN drops every hour")
	blob, err := Serialize(doc)
	require.NoError(t, err)

	got, err := Deserialize(blob)
	require.NoError(t, err)
	assert.True(t, Equal(doc, got))
	assert.Equal(t, "VPN drops every hour", ExtractText(got))
}

func TestDeserializeLegacyPlainText(t *testing.T) {
	got, err := Deserialize("reviewing")
	require.NoError(t, err)
	assert.Equal(t, "reviewing", ExtractText(got))

	_, err = Deserialize("{not json")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 130)
	assert.Equal(t, strings.Repeat("a", 120)+"...", Snippet(Paragraph(long), 120))
	assert.Equal(t, "short", Snippet(Paragraph("short"), 120))
}

func TestRenderHTMLSanitizes(t *testing.T) {
	doc := Doc{Type: "doc", Content: []Doc{{
		Type: "paragraph",
		Content: []Doc{
			{Type: "text", Text: "see ", Marks: []Mark{{Type: "bold"}}},
			{Type: "text", Text: "docs", Marks: []Mark{{Type: "link", Attrs: map[string]any{"href": "javascript:alert(1)"}}}},
			{Type: "text", Text: "<script>x</script>"},
		},
	}}}
	out := RenderHTML(doc)
	assert.Contains(t, out, "<strong>see </strong>")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "<script>")
}

func ptr[T any](v T) *T { return &v }
