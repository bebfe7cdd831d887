package models

import "strings"

// ADFDocument is an Atlassian Document Format body. Jira REST v3 requires it
// for rich text fields such as description and comment bodies.
type ADFDocument struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []ADFNode `json:"content"`
}

// ADFNode is a block or inline node
type ADFNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []ADFNode `json:"content,omitempty"`
}

// NewADFText wraps plain text into a document with one paragraph per line.
func NewADFText(text string) *ADFDocument {
	doc := &ADFDocument{Type: "doc", Version: 1}
	for _, line := range strings.Split(text, "\n") {
		para := ADFNode{Type: "paragraph"}
		if line != "" {
			para.Content = []ADFNode{{Type: "text", Text: line}}
		}
		doc.Content = append(doc.Content, para)
	}
	return doc
}

// PlainText flattens the document back to text, paragraphs joined by newlines.
func (d *ADFDocument) PlainText() string {
	if d == nil {
		return ""
	}
	lines := make([]string, 0, len(d.Content))
	for _, block := range d.Content {
		lines = append(lines, flatten(block))
	}
	return strings.Join(lines, "\n")
}

func flatten(n ADFNode) string {
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Content {
		b.WriteString(flatten(c))
	}
	return b.String()
}
