package conformance

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultDir holds the bundled suites, relative to this package.
const DefaultDir = "testdata"

// LoadedCase represents a case with the suite and file it came from.
type LoadedCase struct {
	File  string
	Suite *Suite
	Case  Case
}

// LoadDir walks dir and loads every case of every .yaml file, in file
// name order.
func LoadDir(dir string) ([]LoadedCase, error) {
	var loaded []LoadedCase

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		cases, err := LoadFile(path)
		if err != nil {
			return err
		}

		// Get relative path for cleaner test names
		relPath, _ := filepath.Rel(dir, path)
		for i := range cases {
			cases[i].File = relPath
		}
		loaded = append(loaded, cases...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loaded, nil
}

// LoadFile parses a single YAML file. Unknown fields are rejected so a
// misspelled expectation cannot pass silently.
func LoadFile(path string) ([]LoadedCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var suite Suite
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cases := make([]LoadedCase, 0, len(suite.Tests))
	for _, c := range suite.Tests {
		if c.Name == "" {
			return nil, fmt.Errorf("%s: case without a name", path)
		}
		cases = append(cases, LoadedCase{
			File:  path,
			Suite: &suite,
			Case:  c,
		})
	}
	return cases, nil
}
