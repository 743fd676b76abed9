package constants

import "strings"

// AllowedExtensions holds the file extensions picked up by batch and watch mode.
var AllowedExtensions = map[string]struct{}{
	"pptx": {},
}

// AnonymizedSuffix is inserted before the extension of files written by the tool.
const AnonymizedSuffix = ".anon"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
