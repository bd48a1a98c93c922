package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

// Separator splits a registry line into URL and display name.
const Separator = "|"

// MaxLineBytes bounds a single registry line.
const MaxLineBytes = 64 * 1024

type Result struct {
	Targets []domain.Target
	Skipped int // non-empty lines that were not valid targets
}

// Load reads the registry file at path. A missing, empty or target-less file is a
// configuration error.
func Load(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: registry %s not found", domain.ErrConfiguration, path)
		}
		return Result{}, fmt.Errorf("%w: open registry %s: %v", domain.ErrConfiguration, path, err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return res, fmt.Errorf("registry %s: %w", path, err)
	}
	return res, nil
}

// Parse reads `url|displayName` lines. Blank lines, lines without the separator and
// lines longer than MaxLineBytes are skipped.
func Parse(r io.Reader) (Result, error) {
	var res Result
	lines := 0

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return res, fmt.Errorf("%w: read registry: %v", domain.ErrConfiguration, err)
		}
		if line := strings.TrimSpace(raw); line != "" {
			lines++
			if t, ok := ParseLine(line); ok && len(line) <= MaxLineBytes {
				res.Targets = append(res.Targets, t)
			} else {
				res.Skipped++
			}
		}
		if err != nil {
			break
		}
	}

	if lines == 0 {
		return res, fmt.Errorf("%w: registry is empty", domain.ErrConfiguration)
	}
	if len(res.Targets) == 0 {
		return res, fmt.Errorf("%w: no valid targets in %d lines", domain.ErrConfiguration, lines)
	}
	return res, nil
}

// ParseLine splits one line at the first separator.
func ParseLine(line string) (domain.Target, bool) {
	rawURL, name, found := strings.Cut(line, Separator)
	if !found {
		return domain.Target{}, false
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return domain.Target{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.UnknownSiteName
	}
	return domain.Target{URL: rawURL, Name: name}, true
}
