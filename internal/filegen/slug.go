package filegen

import "strings"

const maxSlugLength = 50

// Slug implements §4.9's stable file_name derivation: lowercase,
// non-alphanumerics collapse to a single "-", and the result is truncated
// to 50 characters with no trailing separator. Calling Slug twice on the
// same display name always yields the same file_name, which is what lets
// create_file detect an existing file instead of creating a duplicate.
func Slug(displayName string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(displayName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
