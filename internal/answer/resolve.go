package answer

import "strings"

// ResolveRefs replaces image refs with uploaded URLs. For every image
// block: a ref present in mapping becomes its content and the ref is
// cleared; otherwise content that already points under trustedBase is
// kept and any stale ref dropped; anything else is normalized to empty
// content. Other kinds are copied
// unchanged.
func ResolveRefs(blocks []PersistedBlock, mapping map[string]string, trustedBase string) []PersistedBlock {
	out := make([]PersistedBlock, len(blocks))
	for i, b := range blocks {
		if b.Type != KindImage {
			out[i] = b
			continue
		}
		if url, ok := mapping[b.Ref]; ok && b.Ref != "" {
			out[i] = PersistedBlock{Type: KindImage, Content: str(url)}
			continue
		}
		if b.Content != nil && IsTrustedURL(*b.Content, trustedBase) {
			out[i] = PersistedBlock{Type: KindImage, Content: str(*b.Content)}
			continue
		}
		out[i] = PersistedBlock{Type: KindImage, Content: str("")}
	}
	return out
}

// IsTrustedURL reports whether u is served from the asset host at base.
func IsTrustedURL(u, base string) bool {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || u == "" {
		return false
	}
	return strings.HasPrefix(u, base+"/")
}

// Refs returns the distinct unresolved image refs in order of appearance.
func Refs(blocks []PersistedBlock) []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range blocks {
		if b.Type == KindImage && b.Ref != "" && !seen[b.Ref] {
			seen[b.Ref] = true
			out = append(out, b.Ref)
		}
	}
	return out
}
