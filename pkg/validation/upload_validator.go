package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/anime-shed/leaf-health-go/internal/errors"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// UploadValidator checks uploaded image names against an extension allowlist.
type UploadValidator struct {
	allowedExtensions []string
}

// NewUploadValidator creates a validator; extensions are compared without the
// leading dot and case-insensitively.
func NewUploadValidator(extensions []string) *UploadValidator {
	allowed := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed = append(allowed, ext)
		}
	}
	return &UploadValidator{allowedExtensions: allowed}
}

// AllowedExtensions returns the normalised allowlist.
func (v *UploadValidator) AllowedExtensions() []string {
	return append([]string(nil), v.allowedExtensions...)
}

// ValidateFilename returns an unsupported_file_type error unless filename has
// an allowed extension.
func (v *UploadValidator) ValidateFilename(filename string) error {
	ext := Extension(filename)
	if ext == "" {
		return apperrors.NewUnsupportedFileTypeError("File has no extension")
	}
	if !v.isExtensionAllowed(ext) {
		return apperrors.NewUnsupportedFileTypeError(
			fmt.Sprintf("Invalid file type. Allowed types: %s", strings.Join(v.allowedExtensions, ", ")))
	}
	return nil
}

func (v *UploadValidator) isExtensionAllowed(ext string) bool {
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Extension returns the lower-cased extension after the last dot, or "".
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// SanitizeFilename reduces name to a safe ASCII base name. It returns "" when
// nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// StagedName is the upload staging name for a model, e.g. "model1_leaf.jpg".
func StagedName(modelID, filename string) string {
	safe := SanitizeFilename(filename)
	if safe == "" {
		safe = "upload"
	}
	return SanitizeFilename(modelID) + "_" + safe
}
