package steps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader discovers and parses step definition files.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates a step file loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "step-loader").Logger(),
	}
}

// isStepFile reports whether a path looks like a step definition file.
func isStepFile(path string) bool {
	return strings.HasSuffix(path, ".step.yaml") || strings.HasSuffix(path, ".step.yml")
}

// Discover walks root and returns every step definition file beneath it.
func (l *Loader) Discover(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories such as .git.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isStepFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	l.logger.Debug().
		Str("root", root).
		Int("files", len(files)).
		Msg("Step files discovered")

	return files, nil
}

// Load parses a single step definition file.
func (l *Loader) Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read step file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse step file %s: %w", path, err)
	}
	def.SourceFile = path

	l.logger.Debug().
		Str("path", path).
		Str("step", def.Name).
		Str("kind", string(def.Kind)).
		Msg("Step definition loaded")

	return &def, nil
}

// LoadAll discovers and parses every step file under root. Parse failures
// are returned as per-file reports alongside the definitions that did load,
// so one broken file does not hide the rest of the project.
func (l *Loader) LoadAll(root string) ([]*Definition, []Report, error) {
	files, err := l.Discover(root)
	if err != nil {
		return nil, nil, err
	}

	var defs []*Definition
	var failures []Report

	for _, path := range files {
		def, err := l.Load(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to load step file")
			failures = append(failures, Report{
				Step:       path,
				SourceFile: path,
				Valid:      false,
				Errors:     []StepError{{Path: "", Message: err.Error()}},
			})
			continue
		}
		defs = append(defs, def)
	}

	return defs, failures, nil
}
