package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"

	"subjectsort/internal/services"
)

const (
	// listingMaxMembers bounds the member listing; the classification
	// prompt is truncated far below this anyway.
	listingMaxMembers = 64
	// memberSizeLimit caps how much of a single member gets extracted for
	// nested classification.
	memberSizeLimit = 64 << 20
)

// ArchiveMember is a document member pulled out of an archive for nested
// classification.
type ArchiveMember struct {
	Name string // name inside the archive
	Path string // extracted location under the work dir
}

// ArchiveListing returns the member names of an archive in stored order,
// directories included.
func (e *Extractor) ArchiveListing(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch NormalizeExt(filepath.Ext(path)) {
	case "zip":
		return listZip(path)
	case "7z":
		return listSevenZip(path)
	case "rar":
		return listRar(path)
	default:
		return nil, services.Wrap(services.ErrValidation, "extract", "list archive",
			fmt.Sprintf("unsupported archive %q", filepath.Base(path)), nil)
	}
}

// FirstDocumentMember extracts the first member carrying a document
// extension into a scratch directory. A nil member means the archive holds
// no document member; the cleanup func is safe to call either way.
func (e *Extractor) FirstDocumentMember(ctx context.Context, path string) (*ArchiveMember, func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return nil, noop, err
	}

	scratch, cleanup, err := e.scratchDir(ScratchArchivePrefix)
	if err != nil {
		return nil, noop, err
	}

	var member *ArchiveMember
	switch NormalizeExt(filepath.Ext(path)) {
	case "zip":
		member, err = extractZipMember(path, scratch)
	case "7z":
		member, err = extractSevenZipMember(path, scratch)
	case "rar":
		member, err = extractRarMember(path, scratch)
	default:
		err = services.Wrap(services.ErrValidation, "extract", "open archive",
			fmt.Sprintf("unsupported archive %q", filepath.Base(path)), nil)
	}
	if err != nil || member == nil {
		cleanup()
		return nil, noop, err
	}
	return member, cleanup, nil
}

func listZip(path string) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "list archive",
			"not a readable zip archive", err)
	}
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
		if len(names) >= listingMaxMembers {
			break
		}
	}
	return names, nil
}

func listSevenZip(path string) ([]string, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "list archive",
			"not a readable 7z archive", err)
	}
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
		if len(names) >= listingMaxMembers {
			break
		}
	}
	return names, nil
}

func listRar(path string) ([]string, error) {
	reader, err := rardecode.OpenReader(path, "")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "list archive",
			"not a readable rar archive", err)
	}
	defer reader.Close()

	var names []string
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "extract", "list archive",
				"rar listing failed", err)
		}
		names = append(names, header.Name)
		if len(names) >= listingMaxMembers {
			break
		}
	}
	return names, nil
}

func extractZipMember(path, scratch string) (*ArchiveMember, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "open archive",
			"not a readable zip archive", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !isDocumentMember(file.Name) {
			continue
		}
		source, err := file.Open()
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "extract", "extract member",
				"cannot open archive member", err)
		}
		defer source.Close()
		return writeMember(scratch, file.Name, source)
	}
	return nil, nil
}

func extractSevenZipMember(path, scratch string) (*ArchiveMember, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "open archive",
			"not a readable 7z archive", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !isDocumentMember(file.Name) {
			continue
		}
		source, err := file.Open()
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "extract", "extract member",
				"cannot open archive member", err)
		}
		defer source.Close()
		return writeMember(scratch, file.Name, source)
	}
	return nil, nil
}

func extractRarMember(path, scratch string) (*ArchiveMember, error) {
	reader, err := rardecode.OpenReader(path, "")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "open archive",
			"not a readable rar archive", err)
	}
	defer reader.Close()

	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "extract", "extract member",
				"rar read failed", err)
		}
		if header.IsDir || !isDocumentMember(header.Name) {
			continue
		}
		return writeMember(scratch, header.Name, reader)
	}
}

// writeMember copies one member into the scratch dir under its base name so
// the extension survives for excerpt dispatch. Member paths never escape
// the scratch dir.
func writeMember(scratch, name string, source io.Reader) (*ArchiveMember, error) {
	destination := filepath.Join(scratch, memberBaseName(name))
	file, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "extract member",
			"cannot create scratch file", err)
	}

	written, err := io.Copy(file, io.LimitReader(source, memberSizeLimit+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destination)
		return nil, services.Wrap(services.ErrValidation, "extract", "extract member",
			"cannot write scratch file", err)
	}
	if written > memberSizeLimit {
		_ = os.Remove(destination)
		return nil, services.Wrap(services.ErrValidation, "extract", "extract member",
			fmt.Sprintf("member %s exceeds %d bytes", memberBaseName(name), int64(memberSizeLimit)), nil)
	}
	return &ArchiveMember{Name: name, Path: destination}, nil
}

// memberBaseName strips directory components from a member name, accepting
// both separator styles.
func memberBaseName(name string) string {
	trimmed := strings.TrimRight(name, "/\\")
	if idx := strings.LastIndexAny(trimmed, "/\\"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "member"
	}
	return trimmed
}
