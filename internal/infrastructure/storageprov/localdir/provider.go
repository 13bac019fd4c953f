// Package localdir is the reference storage provider: one directory per
// engagement folder, modification-time cursors for incremental sync. Remote
// providers (Dropbox, SharePoint, Drive) implement the same port.
package localdir

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/clearledger/taxintake/internal/core/domain"
)

const DefaultMaxDownloadBytes = 25 << 20

type Provider struct {
	root     string
	maxBytes int64
}

func New(root string, maxBytes int64) (*Provider, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Provider{root: root, maxBytes: maxBytes}, nil
}

// Sync lists files in folderRef modified after the cursor. The cursor is the
// highest modification time seen so far, in unix nanoseconds. A token that
// does not parse is reported as domain.ErrCursorInvalid so the caller
// restarts from the null cursor.
func (p *Provider) Sync(_ context.Context, folderRef string, pageToken *string) (domain.SyncPage, error) {
	var cursor int64
	if pageToken != nil && *pageToken != "" {
		parsed, err := strconv.ParseInt(*pageToken, 10, 64)
		if err != nil {
			return domain.SyncPage{}, domain.WrapError(domain.ErrCursorInvalid, "parse sync cursor", err)
		}
		cursor = parsed
	}

	dir := filepath.Join(p.root, filepath.Clean("/"+folderRef))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SyncPage{Files: []domain.StorageFile{}, NextPageToken: tokenString(cursor)}, nil
		}
		return domain.SyncPage{}, fmt.Errorf("list folder %s: %w", folderRef, err)
	}

	maxSeen := cursor
	files := make([]domain.StorageFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return domain.SyncPage{}, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		mod := info.ModTime().UnixNano()
		if mod > maxSeen {
			maxSeen = mod
		}
		if mod <= cursor {
			continue
		}
		files = append(files, domain.StorageFile{
			ID:       filepath.ToSlash(filepath.Join(folderRef, entry.Name())),
			Name:     entry.Name(),
			MimeType: mimeByName(entry.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return domain.SyncPage{Files: files, NextPageToken: tokenString(maxSeen)}, nil
}

// Download reads one file, rejecting anything over the size ceiling.
func (p *Provider) Download(_ context.Context, fileID string) (domain.FilePayload, error) {
	path := filepath.Join(p.root, filepath.Clean("/"+fileID))

	info, err := os.Stat(path)
	if err != nil {
		return domain.FilePayload{}, fmt.Errorf("stat %s: %w", fileID, err)
	}
	if info.Size() > p.maxBytes {
		return domain.FilePayload{}, domain.WrapError(domain.ErrFileTooLarge, "download",
			fmt.Errorf("%s is %d bytes, ceiling %d", fileID, info.Size(), p.maxBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FilePayload{}, fmt.Errorf("read %s: %w", fileID, err)
	}
	return domain.FilePayload{
		Bytes:    data,
		MimeType: mimeByName(path),
		FileName: filepath.Base(path),
		Size:     info.Size(),
	}, nil
}

func mimeByName(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func tokenString(cursor int64) string {
	return strconv.FormatInt(cursor, 10)
}
