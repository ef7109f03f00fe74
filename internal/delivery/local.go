// Package delivery moves finished digests to their destinations: a dated
// copy in the local output directory and, optionally, an email to a Kindle
// address.
package delivery

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const fileDateLayout = "2006-01-02"

// Local stores digests under a directory with dated filenames and prunes
// copies older than the retention window.
type Local struct {
	outputDir string
	keepDays  int
}

// NewLocal creates a Local delivery target. keepDays <= 0 disables pruning.
func NewLocal(outputDir string, keepDays int) *Local {
	return &Local{outputDir: outputDir, keepDays: keepDays}
}

// Save copies the digest at srcPath into the output directory as
// morningbyte-YYYY-MM-DD.epub and returns the destination path.
func (l *Local) Save(srcPath string, date time.Time) (string, error) {
	if err := os.MkdirAll(l.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	dst := filepath.Join(l.outputDir, fmt.Sprintf("morningbyte-%s.epub", date.Format(fileDateLayout)))

	in, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening digest: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copying digest to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}
	return dst, nil
}

// CleanupOld removes digests older than keepDays, counted from now. Files
// whose names do not carry a parseable date are left alone. Returns the
// number of files removed.
func (l *Local) CleanupOld(now time.Time) (int, error) {
	if l.keepDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -l.keepDays)

	entries, err := os.ReadDir(l.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading output directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		d, ok := fileDate(entry.Name())
		if !ok {
			continue
		}
		if d.Before(cutoff) {
			if err := os.Remove(filepath.Join(l.outputDir, entry.Name())); err != nil {
				return removed, fmt.Errorf("removing %s: %w", entry.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

// DigestFile describes one saved digest in the output directory.
type DigestFile struct {
	Path string
	Date time.Time
	Size int64
}

// List returns the saved digests, newest first.
func (l *Local) List() ([]DigestFile, error) {
	entries, err := os.ReadDir(l.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	var files []DigestFile
	for _, entry := range entries {
		d, ok := fileDate(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		files = append(files, DigestFile{
			Path: filepath.Join(l.outputDir, entry.Name()),
			Date: d,
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Date.After(files[j].Date) })
	return files, nil
}

// fileDate extracts the date from a morningbyte-YYYY-MM-DD.epub filename.
func fileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, "morningbyte-") || !strings.HasSuffix(name, ".epub") {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "morningbyte-"), ".epub")
	d, err := time.Parse(fileDateLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
