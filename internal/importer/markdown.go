// Package importer turns authored files (Markdown, XLSX workbooks, YAML
// seed directories) into curriculum content.
package importer

import (
	"bytes"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/answer/render"
)

// Markdown converts src into an answer document. When title is empty a
// leading level-1 heading becomes the title. Images with an absolute
// http(s) destination keep it as their URL; any other destination becomes
// the block's ref, to be resolved against attachments.
func Markdown(src []byte, title string) answer.Document {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	c := converter{src: src}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 && title == "" && len(c.blocks) == 0 {
			title = c.inline(h)
			continue
		}
		c.block(n)
	}
	if len(c.blocks) == 0 {
		return answer.NewDocument(title)
	}
	return answer.Document{Title: title, Blocks: c.blocks}
}

type converter struct {
	src    []byte
	blocks []answer.PersistedBlock
}

func (c *converter) add(b answer.Body) {
	c.blocks = append(c.blocks, answer.Encode(b))
}

func (c *converter) block(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		if v.Level == 1 {
			c.add(answer.Heading{Content: c.inline(v)})
		} else {
			c.add(answer.Subheading{Content: c.inline(v)})
		}
	case *ast.Paragraph:
		if img := soleImage(v); img != nil {
			c.add(imageBlock(img))
			return
		}
		c.add(answer.Text{Content: c.inline(v)})
	case *ast.List:
		var items []string
		c.listItems(v, &items)
		c.add(answer.List{Items: items})
	case *ast.FencedCodeBlock:
		c.add(answer.Code{Source: c.lines(v)})
	case *ast.CodeBlock:
		c.add(answer.Code{Source: c.lines(v)})
	case *ast.Blockquote:
		var parts []string
		for ch := v.FirstChild(); ch != nil; ch = ch.NextSibling() {
			if s := c.inline(ch); s != "" {
				parts = append(parts, s)
			}
		}
		c.add(answer.Callout{Content: strings.Join(parts, "\n")})
	}
}

// listItems flattens nested lists into one item sequence.
func (c *converter) listItems(l *ast.List, items *[]string) {
	for it := l.FirstChild(); it != nil; it = it.NextSibling() {
		var parts []string
		for ch := it.FirstChild(); ch != nil; ch = ch.NextSibling() {
			if nested, ok := ch.(*ast.List); ok {
				if len(parts) > 0 {
					*items = append(*items, strings.Join(parts, " "))
					parts = nil
				}
				c.listItems(nested, items)
				continue
			}
			if s := c.inline(ch); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			*items = append(*items, strings.Join(parts, " "))
		}
	}
}

func (c *converter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// inline renders the inline children of n as block content. Strong
// emphasis keeps its ** delimiters; other markup is reduced to its text.
func (c *converter) inline(n ast.Node) string {
	var buf strings.Builder
	c.writeInline(&buf, n)
	return strings.TrimSpace(buf.String())
}

func (c *converter) writeInline(buf *strings.Builder, n ast.Node) {
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch v := ch.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(c.src))
			if v.HardLineBreak() || v.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.Emphasis:
			if v.Level >= 2 {
				buf.WriteString(render.EmphasisDelimiter)
				c.writeInline(buf, v)
				buf.WriteString(render.EmphasisDelimiter)
			} else {
				c.writeInline(buf, v)
			}
		case *ast.AutoLink:
			buf.Write(v.Label(c.src))
		case *ast.RawHTML:
		default:
			c.writeInline(buf, v)
		}
	}
}

// soleImage returns the image when it is the only content of p.
func soleImage(p *ast.Paragraph) *ast.Image {
	var img *ast.Image
	for ch := p.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch v := ch.(type) {
		case *ast.Image:
			if img != nil {
				return nil
			}
			img = v
		case *ast.Text:
			if v.Segment.Len() > 0 {
				return nil
			}
		default:
			return nil
		}
	}
	return img
}

func imageBlock(img *ast.Image) answer.Body {
	dest := strings.TrimSpace(string(img.Destination))
	if IsAbsoluteURL(dest) {
		return answer.Image{URL: dest}
	}
	return answer.Image{Ref: CleanRef(dest)}
}

// IsAbsoluteURL reports whether s is an http(s) URL.
func IsAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// CleanRef normalizes a relative attachment path, e.g. "./img/a.png" to
// "img/a.png".
func CleanRef(ref string) string {
	r := strings.TrimPrefix(path.Clean("/"+ref), "/")
	if r == "." {
		return ""
	}
	return r
}
