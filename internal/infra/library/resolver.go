// Package library turns local audio files into track references.
package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/audio"
)

// ErrNotAudio is returned for files with an unsupported extension.
var ErrNotAudio = errors.New("not an audio file")

// ProbeFunc returns the duration of an audio file.
type ProbeFunc func(path string) (time.Duration, error)

// Resolver builds track references from file paths.
type Resolver struct {
	extensions []string
	probe      ProbeFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProbe replaces the duration probe. A nil probe leaves durations unknown.
func WithProbe(p ProbeFunc) Option {
	return func(r *Resolver) { r.probe = p }
}

// NewResolver creates a resolver accepting the given extensions.
// An empty list accepts everything the audio engine can decode.
func NewResolver(extensions []string, opts ...Option) *Resolver {
	if len(extensions) == 0 {
		extensions = audio.SupportedExtensions
	}
	r := &Resolver{
		extensions: make([]string, len(extensions)),
		probe:      probeDuration,
	}
	for i, e := range extensions {
		r.extensions[i] = strings.ToLower(e)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TrackID returns the stable id for an absolute file path.
func TrackID(absPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(absPath))).String()
}

// Resolve reads one file. Tags are optional; the title falls back to the
// file name and the duration to zero.
func (r *Resolver) Resolve(path string) (track.Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to resolve path")
	}
	if !r.accepts(abs) {
		return track.Track{}, errors.Wrapf(ErrNotAudio, "path=%s", abs)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to stat file")
	}
	if info.IsDir() {
		return track.Track{}, errors.Newf("%s is a directory", abs)
	}

	t := track.Track{
		ID:       TrackID(abs),
		FilePath: abs,
	}
	readTags(abs, &t)
	if t.Title == "" {
		t.Title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}

	if r.probe != nil {
		d, err := r.probe(abs)
		if err != nil {
			zlog.Debug().Err(err).Msgf("duration probe failed: path=%s", abs)
		} else {
			t.Duration = d
		}
	}
	return t, nil
}

// ResolveAll resolves files, expands playlist files and walks directories in
// lexical order. Entries that fail are reported and skipped.
func (r *Resolver) ResolveAll(paths []string) ([]track.Track, []error) {
	var (
		tracks []track.Track
		errs   []error
	)

	for _, p := range paths {
		if IsPlaylist(p) {
			pl, err := LoadPlaylist(p)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "path=%s", p))
				continue
			}
			zlog.Debug().Msgf("expanding playlist: name=%s entries=%d", pl.Name, len(pl.Entries))
			for _, entry := range pl.Entries {
				tracks, errs = r.resolveEntry(entry, tracks, errs)
			}
			continue
		}
		tracks, errs = r.resolveEntry(p, tracks, errs)
	}

	return tracks, errs
}

// resolveEntry resolves a file or walks a directory, appending the results.
// Playlists are not expanded here so that playlists cannot nest.
func (r *Resolver) resolveEntry(p string, tracks []track.Track, errs []error) ([]track.Track, []error) {
	info, err := os.Stat(p)
	if err != nil {
		return tracks, append(errs, errors.Wrapf(err, "path=%s", p))
	}

	files := []string{p}
	if info.IsDir() {
		files, err = r.walk(p)
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, f := range files {
		t, err := r.Resolve(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, errs
}

func (r *Resolver) walk(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && r.accepts(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, errors.Wrapf(err, "failed to walk %s", dir)
	}
	slices.Sort(files)
	return files, nil
}

func (r *Resolver) accepts(path string) bool {
	return slices.Contains(r.extensions, strings.ToLower(filepath.Ext(path)))
}

func readTags(path string, t *track.Track) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer tag.Close()

	t.Title = strings.TrimSpace(tag.Title())
	t.Artist = strings.TrimSpace(tag.Artist())
	t.Album = strings.TrimSpace(tag.Album())
}

func probeDuration(path string) (time.Duration, error) {
	src, err := audio.Decode(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return src.Duration(), nil
}
