package domain

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/richtext"
)

// KnowledgeKind separates notices from FAQ entries.
type KnowledgeKind string

const (
	KnowledgeNotice KnowledgeKind = "notice"
	KnowledgeFAQ    KnowledgeKind = "faq"
)

// KnowledgeItem is a notice or FAQ entry. Category is only meaningful for FAQs.
type KnowledgeItem struct {
	ID        int64
	Kind      KnowledgeKind
	Title     string
	Body      richtext.Doc
	Category  *string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
