// Package answer models descriptive answers: an ordered sequence of typed
// content blocks that is edited by the authoring controller and rendered
// read-only by the study application.
package answer

import "fmt"

// Kind is the closed set of block kinds.
type Kind string

const (
	KindText       Kind = "text"
	KindHeading    Kind = "heading"
	KindSubheading Kind = "subheading"
	KindList       Kind = "list"
	KindCode       Kind = "code"
	KindCallout    Kind = "callout"
	KindImage      Kind = "image"
)

// Kinds lists every kind in picker order.
var Kinds = []Kind{KindText, KindHeading, KindSubheading, KindList, KindCode, KindCallout, KindImage}

// ParseKind validates s against the closed kind set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown block kind %q", s)
}

// Multiline reports whether Enter inserts literal input in blocks of kind k
// instead of starting a new block.
func (k Kind) Multiline() bool { return k == KindList || k == KindCode }

// Body is the kind-specific payload of a block. Exactly one struct per
// kind implements it, so a kind change is always a reconstruction.
type Body interface {
	Kind() Kind
	isBody()
}

type Text struct{ Content string }
type Heading struct{ Content string }
type Subheading struct{ Content string }
type Code struct{ Source string }
type Callout struct{ Content string }

// List holds its items; a list always has at least one item.
type List struct{ Items []string }

// Image holds a resolved URL, or a local Ref awaiting upload resolution.
type Image struct {
	URL string
	Ref string
}

func (Text) Kind() Kind       { return KindText }
func (Heading) Kind() Kind    { return KindHeading }
func (Subheading) Kind() Kind { return KindSubheading }
func (List) Kind() Kind       { return KindList }
func (Code) Kind() Kind       { return KindCode }
func (Callout) Kind() Kind    { return KindCallout }
func (Image) Kind() Kind      { return KindImage }

func (Text) isBody()       {}
func (Heading) isBody()    {}
func (Subheading) isBody() {}
func (List) isBody()       {}
func (Code) isBody()       {}
func (Callout) isBody()    {}
func (Image) isBody()      {}

// EmptyBody returns a blank body of kind k. Unknown kinds fall back to text.
func EmptyBody(k Kind) Body {
	switch k {
	case KindHeading:
		return Heading{}
	case KindSubheading:
		return Subheading{}
	case KindList:
		return List{Items: []string{""}}
	case KindCode:
		return Code{}
	case KindCallout:
		return Callout{}
	case KindImage:
		return Image{}
	default:
		return Text{}
	}
}

// ContentOf returns the string payload of b: the text for prose kinds, the
// source for code, the URL for images and "" for lists.
func ContentOf(b Body) string {
	switch v := b.(type) {
	case Text:
		return v.Content
	case Heading:
		return v.Content
	case Subheading:
		return v.Content
	case Code:
		return v.Source
	case Callout:
		return v.Content
	case Image:
		return v.URL
	default:
		return ""
	}
}

// ItemsOf returns a copy of the list items of b, or nil for other kinds.
func ItemsOf(b Body) []string {
	l, ok := b.(List)
	if !ok {
		return nil
	}
	return append([]string(nil), l.Items...)
}

func withContent(b Body, s string) Body {
	switch b.(type) {
	case Text:
		return Text{Content: s}
	case Heading:
		return Heading{Content: s}
	case Subheading:
		return Subheading{Content: s}
	case Code:
		return Code{Source: s}
	case Callout:
		return Callout{Content: s}
	case Image:
		return Image{URL: s}
	default:
		return b
	}
}

func normalizeItems(items []string) []string {
	if len(items) == 0 {
		return []string{""}
	}
	return append([]string(nil), items...)
}
