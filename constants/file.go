package constants

import (
	"path/filepath"
	"strings"
)

// Content types used for job artifacts.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// PDFFilename makes sure name carries exactly one .pdf extension.
func PDFFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		base = "document"
	}
	if NormalizeExt(filepath.Ext(base)) == "pdf" {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base + ".pdf"
}
