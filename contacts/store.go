// Package contacts loads per-area contact lists from flat files of
// newline-delimited JSON. One file per area lives at <dir>/<area>.txt;
// each non-blank line is a JSON object with at least "name" and "job"
// string fields.
//
// The lookup behavior is deliberately implemented three times, tracing
// the refactoring the package grew through: Lookup is the original
// single function, LookupStaged calls the four named stages directly,
// and Pipeline composes the same stages with the areabook core. All
// three return identical results and identical error kinds for
// identical inputs.
package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Contact is the validated output record.
type Contact struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// fileExt is the fixed extension of area data files.
const fileExt = ".txt"

// areaPattern constrains area names to a safe character set so a caller
// cannot address files outside the data directory.
var areaPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store reads contact lists from a directory of area files. The zero
// value is not usable; construct with NewStore. Store holds no per-request
// state and is safe for concurrent use.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at the given data directory.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Dir returns the data directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}

// ResolvePath maps an area name to its data file path. Pure: no
// filesystem access happens here. Area names outside [A-Za-z0-9_-] are
// rejected before any path is built, and the joined path is verified to
// stay inside the data directory.
func (s *Store) ResolvePath(area string) (string, error) {
	if !areaPattern.MatchString(area) {
		return "", &OpError{
			Op:   "contacts.resolve_path",
			Kind: KindBadArea,
			Err:  fmt.Errorf("area %q must match %s", area, areaPattern),
		}
	}

	path := filepath.Join(s.dir, area+fileExt)
	if filepath.Dir(path) != s.dir {
		return "", &OpError{
			Op:   "contacts.resolve_path",
			Kind: KindBadArea,
			Err:  fmt.Errorf("area %q escapes data directory", area),
		}
	}
	return path, nil
}

// ReadLines loads the file at path and returns its non-blank lines in
// file order. Whitespace-only lines are dropped. A missing file reports
// kind not_found; any other read failure reports kind io.
func (s *Store) ReadLines(_ context.Context, path string) ([]string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		kind := KindIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindNotFound
		}
		return nil, &OpError{
			Op:   "contacts.read_lines",
			Kind: kind,
			Path: path,
			Err:  err,
		}
	}

	var lines []string
	for _, line := range strings.Split(string(buf), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ParseRecords decodes each line as a JSON object into a generic
// key/value mapping, preserving input order. The first malformed line
// fails the whole batch; the error carries the offending line and its
// 1-based position.
func (s *Store) ParseRecords(_ context.Context, lines []string) ([]map[string]any, error) {
	records := make([]map[string]any, 0, len(lines))
	for i, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, &OpError{
				Op:   "contacts.parse_records",
				Kind: KindParse,
				Err:  fmt.Errorf("line %d: %w: %q", i+1, err, line),
			}
		}
		if rec == nil {
			// "null" decodes without error but is not an object.
			return nil, &OpError{
				Op:   "contacts.parse_records",
				Kind: KindParse,
				Err:  fmt.Errorf("line %d: not a JSON object: %q", i+1, line),
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ToContacts converts each record into a Contact, requiring name and job
// to be present and string-typed. One bad record fails the entire batch;
// the error names the record position and the offending field(s).
func (s *Store) ToContacts(_ context.Context, records []map[string]any) ([]Contact, error) {
	contacts := make([]Contact, 0, len(records))
	for i, rec := range records {
		name, nameOK := rec["name"].(string)
		job, jobOK := rec["job"].(string)

		var bad []string
		if !nameOK {
			bad = append(bad, "name")
		}
		if !jobOK {
			bad = append(bad, "job")
		}
		if len(bad) > 0 {
			return nil, &OpError{
				Op:   "contacts.to_contacts",
				Kind: KindValidation,
				Err:  fmt.Errorf("record %d: missing or non-string field(s): %s", i+1, strings.Join(bad, ", ")),
			}
		}

		contacts = append(contacts, Contact{Name: name, Job: job})
	}
	return contacts, nil
}

// Lookup returns the contact list for an area as one straight-line
// function: resolve, read, parse, convert, all inline. This is the
// original rendition the staged and pipeline variants were refactored
// from; it produces the same results and error kinds as both.
func (s *Store) Lookup(_ context.Context, area string) ([]Contact, error) {
	if !areaPattern.MatchString(area) {
		return nil, &OpError{
			Op:   "contacts.resolve_path",
			Kind: KindBadArea,
			Err:  fmt.Errorf("area %q must match %s", area, areaPattern),
		}
	}
	path := filepath.Join(s.dir, area+fileExt)

	buf, err := os.ReadFile(path)
	if err != nil {
		kind := KindIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindNotFound
		}
		return nil, &OpError{Op: "contacts.read_lines", Kind: kind, Path: path, Err: err}
	}

	var lines []string
	for _, line := range strings.Split(string(buf), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	records := make([]map[string]any, 0, len(lines))
	for i, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, &OpError{
				Op:   "contacts.parse_records",
				Kind: KindParse,
				Err:  fmt.Errorf("line %d: %w: %q", i+1, err, line),
			}
		}
		if rec == nil {
			return nil, &OpError{
				Op:   "contacts.parse_records",
				Kind: KindParse,
				Err:  fmt.Errorf("line %d: not a JSON object: %q", i+1, line),
			}
		}
		records = append(records, rec)
	}

	contacts := make([]Contact, 0, len(records))
	for i, rec := range records {
		name, nameOK := rec["name"].(string)
		job, jobOK := rec["job"].(string)
		var bad []string
		if !nameOK {
			bad = append(bad, "name")
		}
		if !jobOK {
			bad = append(bad, "job")
		}
		if len(bad) > 0 {
			return nil, &OpError{
				Op:   "contacts.to_contacts",
				Kind: KindValidation,
				Err:  fmt.Errorf("record %d: missing or non-string field(s): %s", i+1, strings.Join(bad, ", ")),
			}
		}
		contacts = append(contacts, Contact{Name: name, Job: job})
	}

	return contacts, nil
}

// LookupStaged returns the contact list for an area by calling the four
// stage methods in sequence.
func (s *Store) LookupStaged(ctx context.Context, area string) ([]Contact, error) {
	path, err := s.ResolvePath(area)
	if err != nil {
		return nil, err
	}
	lines, err := s.ReadLines(ctx, path)
	if err != nil {
		return nil, err
	}
	records, err := s.ParseRecords(ctx, lines)
	if err != nil {
		return nil, err
	}
	return s.ToContacts(ctx, records)
}
