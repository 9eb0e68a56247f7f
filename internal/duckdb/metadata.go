package duckdb

import (
	"os"
	"time"
)

// FileFingerprint identifies the model file a prediction came from.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Same reports whether two fingerprints describe the same file contents,
// judged by size and modification time. Times are compared at microsecond
// precision, the resolution of a DuckDB TIMESTAMP.
func (f FileFingerprint) Same(other FileFingerprint) bool {
	return f.Size == other.Size &&
		f.ModTime.Truncate(time.Microsecond).Equal(other.ModTime.Truncate(time.Microsecond))
}
