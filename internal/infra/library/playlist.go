package library

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// PlaylistExtensions lists the playlist file formats that expand into entries.
var PlaylistExtensions = []string{".m3u", ".m3u8", ".pls"}

// Playlist represents a playlist file read from disk.
type Playlist struct {
	Name    string   // File name without extension
	Path    string   // Absolute path of the playlist file
	Entries []string // Absolute entry paths in file order
}

// IsPlaylist reports whether path names a playlist file.
func IsPlaylist(path string) bool {
	return slices.Contains(PlaylistExtensions, strings.ToLower(filepath.Ext(path)))
}

// LoadPlaylist parses a .m3u, .m3u8 or .pls file. Relative entries are
// resolved against the playlist directory; URLs are skipped.
func LoadPlaylist(path string) (*Playlist, error) {
	if !IsPlaylist(path) {
		return nil, errors.Newf("unsupported playlist format: %s", filepath.Ext(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve playlist path")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist")
	}
	if !utf8.Valid(data) {
		return nil, errors.Newf("playlist is not valid UTF-8: %s", abs)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	p := &Playlist{
		Name: strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Path: abs,
	}
	baseDir := filepath.Dir(abs)
	scanner := bufio.NewScanner(bytes.NewReader(data))

	for scanner.Scan() {
		entry := playlistEntry(strings.TrimSpace(scanner.Text()), strings.EqualFold(filepath.Ext(abs), ".pls"))
		if entry == "" || strings.Contains(entry, "://") {
			continue
		}
		entry = strings.Trim(entry, `"`)
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(baseDir, entry)
		}
		p.Entries = append(p.Entries, filepath.Clean(entry))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan playlist")
	}
	return p, nil
}

// playlistEntry extracts the entry of a single line, or "" for comments and
// metadata lines.
func playlistEntry(line string, pls bool) string {
	if line == "" {
		return ""
	}
	if !pls {
		if strings.HasPrefix(line, "#") {
			return ""
		}
		return line
	}

	key, val, ok := strings.Cut(line, "=")
	if !ok || !isPLSFileKey(strings.TrimSpace(key)) {
		return ""
	}
	return strings.TrimSpace(val)
}

// isPLSFileKey matches File1, File2, ... keys.
func isPLSFileKey(key string) bool {
	rest, ok := strings.CutPrefix(strings.ToLower(key), "file")
	if !ok || rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}
