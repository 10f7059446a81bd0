package downloader

import "strings"

// UnknownImage names images whose reference has no final path segment.
const UnknownImage = "unknown_image"

// FileName returns the last slash-delimited segment of ref, or UnknownImage
// when that segment is empty.
func FileName(ref string) string {
	name := ref
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		name = ref[i+1:]
	}
	if name == "" {
		return UnknownImage
	}
	return name
}

// Sanitize replaces every rune outside [A-Za-z0-9._] with an underscore.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// LocalName returns the sanitized file name an image reference is saved as.
func LocalName(ref string) string {
	name := Sanitize(FileName(ref))
	if name == "." || name == ".." {
		return UnknownImage
	}
	return name
}
