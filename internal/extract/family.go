package extract

import (
	"path/filepath"
	"sort"
	"strings"
)

// Family groups extensions that share an extraction route.
type Family string

const (
	FamilyDocument Family = "document"
	FamilyImage    Family = "image"
	FamilyArchive  Family = "archive"
	FamilyAudio    Family = "audio"
	FamilyUnknown  Family = "unknown"
)

var familyByExt = map[string]Family{
	"txt":  FamilyDocument,
	"md":   FamilyDocument,
	"doc":  FamilyDocument,
	"docx": FamilyDocument,
	"pdf":  FamilyDocument,
	"pptx": FamilyDocument,

	"jpg":  FamilyImage,
	"jpeg": FamilyImage,
	"png":  FamilyImage,
	"bmp":  FamilyImage,
	"tif":  FamilyImage,
	"tiff": FamilyImage,
	"webp": FamilyImage,

	"zip": FamilyArchive,
	"rar": FamilyArchive,
	"7z":  FamilyArchive,

	"mp3":  FamilyAudio,
	"wav":  FamilyAudio,
	"m4a":  FamilyAudio,
	"flac": FamilyAudio,
	"ogg":  FamilyAudio,
}

// documentMemberExts are the member suffixes worth pulling out of an archive
// for nested classification.
var documentMemberExts = []string{".txt", ".doc", ".docx", ".pdf"}

// NormalizeExt lowercases an extension and strips the leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// DetectFamily reports the extraction family for a path based on its
// extension. Paths with no recognized extension map to FamilyUnknown.
func DetectFamily(path string) Family {
	ext := NormalizeExt(filepath.Ext(path))
	if ext == "" {
		return FamilyUnknown
	}
	if family, ok := familyByExt[ext]; ok {
		return family
	}
	return FamilyUnknown
}

// Supported reports whether a path belongs to any extraction family.
func Supported(path string) bool {
	return DetectFamily(path) != FamilyUnknown
}

// SupportedExtensions returns every extension the extractor recognizes,
// sorted for stable output.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(familyByExt))
	for ext := range familyByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// isDocumentMember reports whether an archive member name carries a
// document extension.
func isDocumentMember(name string) bool {
	lowered := strings.ToLower(name)
	for _, ext := range documentMemberExts {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}
