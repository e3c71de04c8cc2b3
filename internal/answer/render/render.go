// Package render projects descriptive answers into a display tree, HTML
// and plain text. Rendering never mutates its input.
package render

import (
	"strings"
	"sync"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

type NodeType string

const (
	NodeParagraph   NodeType = "paragraph"
	NodeHeading     NodeType = "heading"
	NodeList        NodeType = "list"
	NodeCode        NodeType = "code"
	NodeCallout     NodeType = "callout"
	NodeImage       NodeType = "image"
	NodePlaceholder NodeType = "placeholder"
)

// Span is a run of paragraph text.
type Span struct {
	Text     string `json:"text"`
	Emphasis bool   `json:"emphasis,omitempty"`
}

// Node is the display of one block.
type Node struct {
	Type  NodeType `json:"type"`
	Level int      `json:"level,omitempty"`
	Text  string   `json:"text,omitempty"`
	Spans []Span   `json:"spans,omitempty"`
	Items []string `json:"items,omitempty"`
	Src   string   `json:"src,omitempty"`
	Label string   `json:"label,omitempty"`
}

// Tree is the display of a whole document.
type Tree struct {
	Title string `json:"title"`
	Nodes []Node `json:"nodes"`
}

const EmphasisDelimiter = "**"

// Renderer renders documents and remembers which images failed to load.
// That state is presentation-only and never written back to a document.
type Renderer struct {
	mu     sync.RWMutex
	failed map[int]string // block index -> URL that failed
}

func New() *Renderer { return &Renderer{failed: map[int]string{}} }

// MarkImageFailed records that the image at block index i failed to load
// from url. A different URL at the same index renders normally again.
func (r *Renderer) MarkImageFailed(i int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[i] = url
}

// Reset forgets all load failures.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = map[int]string{}
}

func (r *Renderer) imageFailed(i int, url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.failed[i]
	return ok && u == url
}

// Render renders doc with no recorded load failures.
func Render(doc answer.Document) Tree { return New().Render(doc) }

func (r *Renderer) Render(doc answer.Document) Tree {
	t := Tree{Title: doc.Title, Nodes: make([]Node, 0, len(doc.Blocks))}
	for i, b := range doc.Blocks {
		t.Nodes = append(t.Nodes, r.node(i, b))
	}
	return t
}

func content(b answer.PersistedBlock) string {
	if b.Content == nil {
		return ""
	}
	return *b.Content
}

func (r *Renderer) node(i int, b answer.PersistedBlock) Node {
	switch b.Type {
	case answer.KindHeading:
		return Node{Type: NodeHeading, Level: 2, Text: content(b)}
	case answer.KindSubheading:
		return Node{Type: NodeHeading, Level: 3, Text: content(b)}
	case answer.KindList:
		return Node{Type: NodeList, Items: append([]string(nil), b.Items...)}
	case answer.KindCode:
		return Node{Type: NodeCode, Text: content(b)}
	case answer.KindCallout:
		return Node{Type: NodeCallout, Text: content(b)}
	case answer.KindImage:
		url := content(b)
		if url == "" || r.imageFailed(i, url) {
			return Node{Type: NodePlaceholder, Label: imageLabel(b)}
		}
		return Node{Type: NodeImage, Src: url, Label: imageLabel(b)}
	default:
		return Node{Type: NodeParagraph, Spans: Emphasis(content(b))}
	}
}

func imageLabel(b answer.PersistedBlock) string {
	if b.Ref != "" {
		return b.Ref
	}
	return "Image"
}

// Emphasis splits s into spans, marking text wrapped in a pair of
// EmphasisDelimiter as emphasized. An unmatched delimiter is kept as text.
func Emphasis(s string) []Span {
	var spans []Span
	add := func(text string, em bool) {
		if text == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Emphasis == em {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, Span{Text: text, Emphasis: em})
	}
	rest := s
	for {
		open := strings.Index(rest, EmphasisDelimiter)
		if open < 0 {
			break
		}
		after := rest[open+len(EmphasisDelimiter):]
		end := strings.Index(after, EmphasisDelimiter)
		if end < 0 {
			break
		}
		add(rest[:open], false)
		if end == 0 {
			add(EmphasisDelimiter+EmphasisDelimiter, false)
		} else {
			add(after[:end], true)
		}
		rest = after[end+len(EmphasisDelimiter):]
	}
	add(rest, false)
	return spans
}
