package reporter

import "strings"

// CombinedPaths renders two paths that differ in only a few components
// as a single string with the differing segment bracketed, e.g.
// "foo/{bar/baz => baz/quz/zzz}/a.txt" for
// "foo/bar/baz/a.txt" and "foo/baz/quz/zzz/a.txt". Grounded on the
// reference implementation's ui.rs combined_paths helper, used to keep
// progress lines readable when two paths share a long common root.
func CombinedPaths(base, relativize string) string {
	baseParts := splitPath(base)
	relParts := splitPath(relativize)

	prefixLen := 0
	for prefixLen < len(baseParts) && prefixLen < len(relParts) && baseParts[prefixLen] == relParts[prefixLen] {
		prefixLen++
	}

	suffixLen := 0
	for suffixLen < len(baseParts)-prefixLen && suffixLen < len(relParts)-prefixLen &&
		baseParts[len(baseParts)-1-suffixLen] == relParts[len(relParts)-1-suffixLen] {
		suffixLen++
	}

	var out strings.Builder
	out.Grow(80)
	for i := 0; i < prefixLen; i++ {
		out.WriteString(baseParts[i])
		if baseParts[i] != "/" {
			out.WriteByte('/')
		}
	}

	out.WriteByte('{')
	writeUnique(&out, baseParts, prefixLen, len(baseParts)-suffixLen)
	out.WriteString(" => ")
	writeUnique(&out, relParts, prefixLen, len(relParts)-suffixLen)
	out.WriteByte('}')

	for i := len(baseParts) - suffixLen; i < len(baseParts); i++ {
		out.WriteByte('/')
		out.WriteString(baseParts[i])
	}

	return out.String()
}

func writeUnique(out *strings.Builder, parts []string, from, to int) {
	if from >= to {
		out.WriteByte('.')
		return
	}
	for i := from; i < to; i++ {
		if i > from {
			out.WriteByte('/')
		}
		out.WriteString(parts[i])
	}
}

// splitPath breaks path into components the way Rust's Path::iter does:
// a leading "/" is its own component, everything else is split on "/"
// with empty components dropped.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}

	var parts []string
	rest := path
	if strings.HasPrefix(rest, "/") {
		parts = append(parts, "/")
		rest = strings.TrimPrefix(rest, "/")
	}
	for _, seg := range strings.Split(rest, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}
