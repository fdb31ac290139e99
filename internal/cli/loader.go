package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/fieldstone/proctor/internal/scenario"
)

// LoadStepFile reads a step definition from a YAML or CUE file, selected
// by extension. Both forms decode into the same scenario.Step shape and
// pass the same structural validation.
func LoadStepFile(path string) (*scenario.Step, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return scenario.LoadStep(path)
	case ".cue":
		return loadStepCUE(path)
	default:
		return nil, fmt.Errorf("unsupported step file %s: expected .yaml, .yml, or .cue", path)
	}
}

// loadStepCUE compiles a single CUE file and decodes it into a step.
// CUE lets scenario authors share constants and templates across steps;
// by the time a file reaches the CLI it must evaluate to one concrete step.
func loadStepCUE(path string) (*scenario.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read step file: %w", err)
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%s: compiling CUE: %w", path, err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s: step is not concrete: %w", path, err)
	}

	var step scenario.Step
	if err := value.Decode(&step); err != nil {
		return nil, fmt.Errorf("%s: decoding step: %w", path, err)
	}
	if err := step.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid step: %w", path, err)
	}
	return &step, nil
}

// FindStepFiles returns all step files under root (a file or directory),
// sorted for deterministic processing order.
func FindStepFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".cue":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
