// Package richtext handles the editor document format used for ticket,
// comment, reopen and knowledge bodies. Documents are a tree of typed nodes
// and are stored as their JSON encoding.
package richtext

import (
	"encoding/json"
	"errors"
	"strings"
)

// Doc is a node of an editor document. The root node has type "doc".
type Doc struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []Doc          `json:"content,omitempty"`
}

// Mark decorates a text node (bold, link, ...).
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ErrInvalidDocument is returned for blobs that do not decode to a document.
var ErrInvalidDocument = errors.New("invalid rich text document")

// mediaNodes count as content even though they carry no text.
var mediaNodes = map[string]struct{}{
	"image": {},
	"video": {},
}

// Empty returns an empty document.
func Empty() Doc {
	return Doc{Type: "doc", Content: []Doc{}}
}

// Paragraph wraps plain text in a single-paragraph document.
func Paragraph(text string) Doc {
	return Doc{
		Type: "doc",
		Content: []Doc{{
			Type:    "paragraph",
			Content: []Doc{{Type: "text", Text: text}},
		}},
	}
}

// Serialize encodes a document for storage.
func Serialize(doc Doc) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// MustSerialize is Serialize for documents built in code.
func MustSerialize(doc Doc) string {
	out, err := Serialize(doc)
	if err != nil {
		panic(err)
	}
	return out
}

// Deserialize decodes a stored document. Legacy plain-text bodies are wrapped
// in a paragraph.
func Deserialize(blob string) (Doc, error) {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return Empty(), nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Paragraph(blob), nil
	}
	var doc Doc
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return Doc{}, ErrInvalidDocument
	}
	if doc.Type == "" {
		return Doc{}, ErrInvalidDocument
	}
	return doc, nil
}

// ExtractText joins the text nodes of doc with single spaces.
func ExtractText(doc Doc) string {
	var parts []string
	var walk func(nodes []Doc)
	walk = func(nodes []Doc) {
		for _, n := range nodes {
			if n.Type == "text" {
				parts = append(parts, n.Text)
				continue
			}
			walk(n.Content)
		}
	}
	if doc.Type == "text" {
		parts = append(parts, doc.Text)
	}
	walk(doc.Content)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// IsEmpty reports whether doc has neither text nor embedded media.
func IsEmpty(doc *Doc) bool {
	if doc == nil {
		return true
	}
	if ExtractText(*doc) != "" {
		return false
	}
	return !hasMedia(doc.Content)
}

func hasMedia(nodes []Doc) bool {
	for _, n := range nodes {
		if _, ok := mediaNodes[n.Type]; ok {
			return true
		}
		if hasMedia(n.Content) {
			return true
		}
	}
	return false
}

// Equal compares two documents by their stored encoding.
func Equal(a, b Doc) bool {
	return MustSerialize(a) == MustSerialize(b)
}

// Snippet returns the first max runes of the document text, suffixed with
// "..." when truncated.
func Snippet(doc Doc, max int) string {
	text := ExtractText(doc)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimRight(string(runes[:max]), " ") + "..."
}
