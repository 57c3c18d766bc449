package xshin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoArchivedPool is returned when an archive directory holds no complete pool
var ErrNoArchivedPool = errors.New("no archived pool")

// ArchiveName is the file name a blob is archived under
func ArchiveName(poolID string, kind BlobKind) string {
	return fmt.Sprintf("%s_%s.bin", kind, filepath.Base(poolID))
}

// Archive serves blobs previously saved with ArchiveName from a directory.
// It satisfies the same contract as Client, which lets a stored pool be replayed.
type Archive struct {
	dir string
}

// NewArchive creates an Archive reading from dir
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// NewestPoolID returns the greatest pool id for which every blob kind is archived
func (a *Archive) NewestPoolID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prefix := string(BlobOverview) + "_"
	matches, err := filepath.Glob(filepath.Join(a.dir, prefix+"*.bin"))
	if err != nil {
		return "", fmt.Errorf("listing archive: %w", err)
	}

	var newest string
	for _, m := range matches {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".bin")
		if id == "" || !a.complete(id) {
			continue
		}
		if newerPoolID(id, newest) {
			newest = id
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoArchivedPool, a.dir)
	}
	return newest, nil
}

// newerPoolID orders numeric ids by value, so "1000" is newer than "999".
// Ids that are not all digits fall back to string order.
func newerPoolID(id, than string) bool {
	if than == "" {
		return true
	}
	a, b := strings.TrimLeft(id, "0"), strings.TrimLeft(than, "0")
	if digits(a) && digits(b) && len(a) != len(b) {
		return len(a) > len(b)
	}
	return id > than
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FetchBlob reads one archived blob
func (a *Archive) FetchBlob(ctx context.Context, poolID string, kind BlobKind) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if poolID == "" {
		return nil, ErrEmptyPoolID
	}

	path := filepath.Join(a.dir, ArchiveName(poolID, kind))
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	if info.Size() > MaxBlobSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBlobTooLarge, path, MaxBlobSize)
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return blob, nil
}

func (a *Archive) complete(poolID string) bool {
	for _, kind := range BlobKinds {
		if _, err := os.Stat(filepath.Join(a.dir, ArchiveName(poolID, kind))); err != nil {
			return false
		}
	}
	return true
}
