package audio

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for files no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrNothingLoaded is returned by transport calls before any Load.
var ErrNothingLoaded = errors.New("no track loaded")

// SupportedExtensions lists the file extensions the decoders accept.
var SupportedExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".oga"}

// Loaded describes a freshly loaded track.
type Loaded struct {
	Duration   time.Duration
	Generation uint64 // carried by every event emitted for this load
}

// Player is an audio engine. Load replaces the current track and leaves it
// paused at the start. Events already buffered for a replaced track may still
// be delivered; callers drop those whose Generation is not the latest load.
type Player interface {
	Load(path string) (Loaded, error)
	Play() error
	Pause() error
	Stop() error
	Seek(position time.Duration) error
	SetVolume(volume float64) error
	Events() <-chan Event
	Close() error
}

// Config holds audio engine configuration.
type Config struct {
	SampleRate       int           // Output sample rate
	Buffer           time.Duration // Speaker buffer length
	ProgressInterval time.Duration // Interval between progress events
	Silent           bool          // Keep time without producing sound
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Buffer <= 0 {
		c.Buffer = 100 * time.Millisecond
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 250 * time.Millisecond
	}
	return c
}

// Source is a decoded audio file.
type Source struct {
	file     *os.File
	Streamer beep.StreamSeekCloser
	Format   beep.Format
}

// Decode opens path and picks a decoder by file extension.
func Decode(path string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "failed to decode %s", filepath.Base(path))
	}

	return &Source{file: f, Streamer: streamer, Format: format}, nil
}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Duration returns the length of the source.
func (s *Source) Duration() time.Duration {
	return s.Format.SampleRate.D(s.Streamer.Len())
}

// Close releases the decoder and the file.
func (s *Source) Close() {
	if s.Streamer != nil {
		_ = s.Streamer.Close()
	}
	if s.file != nil {
		_ = s.file.Close()
	}
}

// emit sends an event without blocking. Progress is disposable; other events
// are rare enough that a full buffer means nobody is listening.
func emit(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
	}
}
