package answer

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is the ephemeral identity of a block inside an editing session.
// It is never persisted.
type ID string

// NewID returns a fresh, locally unique identity.
func NewID() ID { return ID(uuid.NewString()) }

// PersistedBlock is the wire/storage shape of a block.
type PersistedBlock struct {
	Type    Kind     `json:"type"`
	Content *string  `json:"content,omitempty"`
	Items   []string `json:"items,omitempty"`
	Ref     string   `json:"ref,omitempty"` // image only, before upload resolution
}

// EditableBlock is the in-memory shape: a body plus an identity.
type EditableBlock struct {
	ID   ID
	Body Body
}

func (b EditableBlock) Kind() Kind { return b.Body.Kind() }

// Document is one descriptive answer: the question prompt and its blocks.
type Document struct {
	Title  string           `json:"question"`
	Blocks []PersistedBlock `json:"answer"`
}

// NewDocument returns a document with a single empty text block.
func NewDocument(title string) Document {
	return Document{Title: title, Blocks: []PersistedBlock{Encode(Text{})}}
}

func str(s string) *string { return &s }

// Encode converts a body to its persisted form.
func Encode(b Body) PersistedBlock {
	switch v := b.(type) {
	case List:
		return PersistedBlock{Type: KindList, Items: normalizeItems(v.Items)}
	case Image:
		return PersistedBlock{Type: KindImage, Content: str(v.URL), Ref: v.Ref}
	default:
		return PersistedBlock{Type: b.Kind(), Content: str(ContentOf(b))}
	}
}

// Decode converts a persisted block to a body, dropping fields that do not
// belong to its kind.
func Decode(p PersistedBlock) (Body, error) {
	k, err := ParseKind(string(p.Type))
	if err != nil {
		return nil, err
	}
	content := ""
	if p.Content != nil {
		content = *p.Content
	}
	switch k {
	case KindList:
		return List{Items: normalizeItems(p.Items)}, nil
	case KindImage:
		return Image{URL: content, Ref: p.Ref}, nil
	default:
		return withContent(EmptyBody(k), content), nil
	}
}

// Hydrate attaches fresh identities to persisted blocks. An empty input
// yields a single empty text block.
func Hydrate(blocks []PersistedBlock) ([]EditableBlock, error) {
	if len(blocks) == 0 {
		return []EditableBlock{{ID: NewID(), Body: Text{}}}, nil
	}
	out := make([]EditableBlock, 0, len(blocks))
	for i, p := range blocks {
		body, err := Decode(p)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, EditableBlock{ID: NewID(), Body: body})
	}
	return out, nil
}

// Serialize strips identities.
func Serialize(blocks []EditableBlock) []PersistedBlock {
	out := make([]PersistedBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, Encode(b.Body))
	}
	return out
}

// Normalize round-trips blocks through Decode/Encode so that stray fields
// are dropped and lists carry at least one item.
func Normalize(blocks []PersistedBlock) ([]PersistedBlock, error) {
	eb, err := Hydrate(blocks)
	if err != nil {
		return nil, err
	}
	return Serialize(eb), nil
}

// DropRefs clears unresolved image refs; their content stays as is.
func DropRefs(blocks []PersistedBlock) []PersistedBlock {
	out := make([]PersistedBlock, len(blocks))
	for i, b := range blocks {
		b.Ref = ""
		out[i] = b
	}
	return out
}
