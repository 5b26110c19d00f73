package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/domain"
)

// FileName is the default backing file name inside the data directory
const FileName = "MoodHistory.json"

// FormatVersion is the envelope version written by Encode
const FormatVersion = 1

// appleEpoch is the reference date used by the legacy app's numeric dates
var appleEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

type document struct {
	Version int                 `json:"version"`
	Entries []domain.MoodRecord `json:"entries"`
}

// FilePersister keeps the history in a single JSON file, rewritten whole on every save
type FilePersister struct {
	path string

	// beforeCreate runs after a missing file is detected, before it is created
	beforeCreate func()
}

// NewFilePersister stores the history at path
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the backing file location
func (f *FilePersister) Path() string {
	return f.path
}

// Load reads the backing file, creating an empty one if it does not exist
func (f *FilePersister) Load(ctx context.Context) ([]domain.MoodRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		if f.beforeCreate != nil {
			f.beforeCreate()
		}
		created, err := f.createEmpty()
		if err != nil {
			return nil, err
		}
		if created {
			return []domain.MoodRecord{}, nil
		}
		// another process created it first
		data, err = os.ReadFile(f.path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read history file", goerr.V("path", f.path))
		}
	} else if err != nil {
		return nil, goerr.Wrap(err, "failed to read history file", goerr.V("path", f.path))
	}

	records, err := Decode(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse history file", goerr.V("path", f.path))
	}
	return records, nil
}

// Save overwrites the backing file with the complete collection
func (f *FilePersister) Save(ctx context.Context, records []domain.MoodRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(records)
	if err != nil {
		return err
	}

	tmp, err := f.writeTemp(data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(err, "failed to replace history file", goerr.V("path", f.path))
	}
	return syncDir(filepath.Dir(f.path))
}

// createEmpty durably publishes an empty history. It reports false when the
// file already existed; the link step fails rather than overwrite it.
func (f *FilePersister) createEmpty() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return false, goerr.Wrap(err, "failed to create data directory", goerr.V("path", f.path))
	}

	data, err := Encode(nil)
	if err != nil {
		return false, err
	}
	tmp, err := f.writeTemp(data)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, f.path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to create history file", goerr.V("path", f.path))
	}
	return true, syncDir(filepath.Dir(f.path))
}

func (f *FilePersister) writeTemp(data []byte) (string, error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create temp file", goerr.V("dir", dir))
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", goerr.Wrap(err, "failed to write temp file", goerr.V("file", name))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", goerr.Wrap(err, "failed to sync temp file", goerr.V("file", name))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", goerr.Wrap(err, "failed to close temp file", goerr.V("file", name))
	}
	return name, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return goerr.Wrap(err, "failed to open data directory", goerr.V("dir", dir))
	}
	defer d.Close()
	// not every platform can fsync a directory; the rename already happened
	_ = d.Sync()
	return nil
}

// Encode serializes records into the versioned backing format
func Encode(records []domain.MoodRecord) ([]byte, error) {
	if records == nil {
		records = []domain.MoodRecord{}
	}
	data, err := json.MarshalIndent(document{Version: FormatVersion, Entries: records}, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode mood history")
	}
	return append(data, '\n'), nil
}

// Decode parses the backing format. A bare JSON array, as written by the
// unversioned format, is accepted too.
func Decode(data []byte) ([]domain.MoodRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeLegacy(trimmed)
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, goerr.Wrap(err, "invalid mood history document")
	}
	if doc.Version < 1 || doc.Version > FormatVersion {
		return nil, goerr.New("unsupported mood history version", goerr.V("version", doc.Version))
	}
	if doc.Entries == nil {
		return []domain.MoodRecord{}, nil
	}
	return doc.Entries, nil
}

type legacyRecord struct {
	ID         string          `json:"id"`
	Mood       string          `json:"mood"`
	Confidence float64         `json:"confidence"`
	Date       json.RawMessage `json:"date"`
}

func decodeLegacy(data []byte) ([]domain.MoodRecord, error) {
	var raw []legacyRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(err, "invalid legacy mood history")
	}

	records := make([]domain.MoodRecord, 0, len(raw))
	for _, r := range raw {
		date, err := decodeLegacyDate(r.Date)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid legacy date", goerr.V("id", r.ID))
		}
		records = append(records, domain.MoodRecord{
			ID:         r.ID,
			Mood:       r.Mood,
			Confidence: r.Confidence,
			Date:       date,
		})
	}
	return records, nil
}

// decodeLegacyDate accepts RFC 3339 strings and numeric seconds since 2001-01-01
func decodeLegacyDate(raw json.RawMessage) (time.Time, error) {
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		whole, frac := math.Modf(secs)
		return appleEpoch.Add(time.Duration(whole)*time.Second + time.Duration(frac*float64(time.Second))), nil
	}

	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
