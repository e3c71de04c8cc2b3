package render

import (
	"strings"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

const bullet = "• "

// ToPlainText linearizes doc for clipboard export. It is lossy: emphasis
// delimiters are kept as typed and images become bracketed placeholders.
func ToPlainText(doc answer.Document) string {
	parts := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		parts = append(parts, plainBlock(b))
	}
	return strings.Join(parts, "\n\n")
}

func plainBlock(b answer.PersistedBlock) string {
	switch b.Type {
	case answer.KindList:
		lines := make([]string, len(b.Items))
		for i, it := range b.Items {
			lines[i] = bullet + it
		}
		return strings.Join(lines, "\n")
	case answer.KindImage:
		label := b.Ref
		if label == "" {
			label = content(b)
		}
		if label == "" {
			label = "image"
		}
		return "[Image: " + label + "]"
	case answer.KindHeading:
		return "\n" + content(b) + "\n"
	case answer.KindCallout:
		return "[Note: " + content(b) + "]"
	default:
		return content(b)
	}
}
