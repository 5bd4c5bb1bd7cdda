package datastore

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/ghodss/yaml.v1"

	"github.com/fluxflag/go-sdk/eval"
	"github.com/fluxflag/go-sdk/internal/flaglog"
)

// fileData mirrors the top-level shape of a flag data file: either or both of "flags" and
// "segments" maps, keyed by flag/segment key.
type fileData struct {
	Flags    *map[string]*eval.FeatureFlag `json:"flags,omitempty"`
	Segments *map[string]*eval.Segment     `json:"segments,omitempty"`
}

// LoadFile reads and parses a single flag data file (JSON or YAML, auto-detected) into store.
func LoadFile(path string, store *Memory) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	applyFileData(data, store)
	return nil
}

// LoadFiles reads and merges multiple flag data files into store via a single Init, failing
// entirely (leaving store untouched) if any file cannot be read or parsed, or if two files define
// the same key.
func LoadFiles(paths []string, store *Memory, loggers flaglog.Loggers) error {
	flags := make(map[string]*eval.FeatureFlag)
	segments := make(map[string]*eval.Segment)

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("unable to determine absolute path for %q: %w", path, err)
		}
		data, err := readFile(abs)
		if err != nil {
			return fmt.Errorf("unable to load flags from %q: %w", abs, err)
		}
		if data.Flags != nil {
			for key, f := range *data.Flags {
				if _, exists := flags[key]; exists {
					return fmt.Errorf("flag %q is specified by multiple files", key)
				}
				flags[key] = f
			}
		}
		if data.Segments != nil {
			for key, s := range *data.Segments {
				if _, exists := segments[key]; exists {
					return fmt.Errorf("segment %q is specified by multiple files", key)
				}
				segments[key] = s
			}
		}
	}

	store.Init(flags, segments)
	loggers.Infof("loaded %d flags and %d segments from %d file(s)", len(flags), len(segments), len(paths))
	return nil
}

func applyFileData(data fileData, store *Memory) {
	flags := make(map[string]*eval.FeatureFlag)
	segments := make(map[string]*eval.Segment)
	if data.Flags != nil {
		flags = *data.Flags
	}
	if data.Segments != nil {
		segments = *data.Segments
	}
	store.Init(flags, segments)
}

func readFile(path string) (fileData, error) {
	var data fileData
	raw, err := ioutil.ReadFile(path) // nolint:gosec
	if err != nil {
		return data, fmt.Errorf("unable to read file: %w", err)
	}
	if detectJSON(raw) {
		err = json.Unmarshal(raw, &data)
	} else {
		err = yaml.Unmarshal(raw, &data)
	}
	if err != nil {
		return data, fmt.Errorf("error parsing file: %w", err)
	}
	return data, nil
}

func detectJSON(raw []byte) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(string(raw), unicode.IsSpace), "{")
}
