package entity

import (
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "tiff": {}, "bmp": {}, "gif": {}, "pdf": {},
}

// AllowedFile reports whether filename has one of the accepted upload extensions.
func AllowedFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[ext]
	return ok
}

// IsPDFName reports whether filename ends in .pdf.
func IsPDFName(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
