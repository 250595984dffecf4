package upload

import "strings"

// SanitizeValue restricts tag and context values to alphanumerics, dots,
// colons and underscores; anything else becomes an underscore. The upload
// service splits tags on commas and context on pipes and equals signs, so
// unsanitized metadata could inject extra fields.
func SanitizeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ':' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// JoinTags sanitizes each tag and joins them comma-separated for the
// upload form.
func JoinTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if s := SanitizeValue(t); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ",")
}

// JoinContext sanitizes keys and values and joins them as pipe-separated
// key=value pairs for the upload form. Keys are emitted in the given order.
func JoinContext(keys []string, values map[string]string) string {
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := values[k]
		if !ok || v == "" {
			continue
		}
		pairs = append(pairs, SanitizeValue(k)+"="+SanitizeValue(v))
	}
	return strings.Join(pairs, "|")
}
