// Package loader reads buyer profiles from JSONL files for bulk import.
// Each line is one profile object; malformed or invalid lines are skipped
// with a warning rather than failing the whole file.
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/dealtree/pkg/model"
)

// DefaultMaxBufferSize is the default buffer size for the scanner (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of ParseProfiles.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int

	// Filter optionally filters parsed profiles. Return true to include.
	Filter func(*model.Profile) bool
}

// LoadProfilesFromFile reads profiles from a JSONL file.
func LoadProfilesFromFile(path string, opts ParseOptions) ([]model.Profile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no profiles found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles file: %w", err)
	}
	defer file.Close()

	return ParseProfiles(file, opts)
}

// ParseProfiles parses JSONL content from a reader into profiles.
// Handles UTF-8 BOM stripping, blank lines and overlong lines. Owner and
// timestamps are left for the importer to fill in.
func ParseProfiles(r io.Reader, opts ParseOptions) ([]model.Profile, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	// Default warning handler prints to stderr (suppressed in robot mode).
	warn := opts.WarningHandler
	if warn == nil {
		if os.Getenv("DT_ROBOT") == "1" {
			warn = func(string) {}
		} else {
			warn = func(msg string) {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
			}
		}
	}

	var profiles []model.Profile
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading profiles stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var p model.Profile
		if err := json.Unmarshal(line, &p); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}

		p.Kind = normalizeKind(p.Kind)
		if err := checkRecord(p); err != nil {
			warn(fmt.Sprintf("skipping invalid profile on line %d: %v", lineNum, err))
			continue
		}

		if opts.Filter != nil && !opts.Filter(&p) {
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// checkRecord validates the fields an import file is expected to carry.
func checkRecord(p model.Profile) error {
	if strings.TrimSpace(p.Company) == "" {
		return fmt.Errorf("company cannot be empty")
	}
	if p.Kind != "" && !p.Kind.IsValid() {
		return fmt.Errorf("invalid profile kind: %s", p.Kind)
	}
	for _, names := range [][]string{p.TargetCriteria.Countries, p.TargetCriteria.IndustrySectors} {
		for _, n := range names {
			if strings.TrimSpace(n) == "" {
				return fmt.Errorf("empty name in target criteria")
			}
		}
	}
	return nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

func normalizeKind(kind model.ProfileKind) model.ProfileKind {
	return model.ProfileKind(strings.ToLower(strings.TrimSpace(string(kind))))
}
