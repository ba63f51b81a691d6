package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/catsim/internal/engine"
)

// Scenario defines one end-to-end catalog run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Manifest is the directory holding the catalog manifest (.cue files).
	Manifest string `yaml:"manifest"`

	// Fixtures are the raw tables loaded before the run.
	Fixtures []Fixture `yaml:"fixtures"`

	// ChunkSize overrides the engine default when positive.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// Catalogs restricts the run to the named catalogs, in manifest order.
	// Empty means every catalog in the manifest.
	Catalogs []string `yaml:"catalogs,omitempty"`

	// Expect maps catalog names to their expected outcome.
	Expect map[string]Expectation `yaml:"expect"`

	// RunID is a fixed run id for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Fixture loads one raw table, from a text file or a seeded generator.
type Fixture struct {
	Table    string     `yaml:"table"`
	ID       string     `yaml:"id,omitempty"` // defaults to "id"
	File     string     `yaml:"file,omitempty"`
	Generate *Generator `yaml:"generate,omitempty"`
}

// Generator describes a seeded synthetic table.
type Generator struct {
	Kind string `yaml:"kind"` // "star" or "offset"
	Rows int    `yaml:"rows"`
	Seed int64  `yaml:"seed"`
}

// Expectation is the expected outcome of one catalog.
// Zero-valued fields are not checked.
type Expectation struct {
	// Status is the expected class status: ok, failed or cancelled.
	Status string `yaml:"status"`

	// Rows is the expected number of rows written to the catalog.
	Rows *int `yaml:"rows,omitempty"`

	// SameIDsAs names a catalog that must have received exactly the same
	// ids in the same order.
	SameIDsAs string `yaml:"same_ids_as,omitempty"`

	// ErrorContains is a substring the class error must contain.
	ErrorContains string `yaml:"error_contains,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Manifest and fixture paths are resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos)
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Manifest = resolve(base, scenario.Manifest)
	for i := range scenario.Fixtures {
		scenario.Fixtures[i].File = resolve(base, scenario.Fixtures[i].File)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if _, err := os.Stat(s.Manifest); os.IsNotExist(err) {
		return fmt.Errorf("manifest directory not found: %s", s.Manifest)
	}

	if s.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative, got %d", s.ChunkSize)
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect is required and must be non-empty")
	}

	tables := map[string]bool{}
	for i, f := range s.Fixtures {
		if f.Table == "" {
			return fmt.Errorf("fixtures[%d]: table is required", i)
		}
		if tables[f.Table] {
			return fmt.Errorf("fixtures[%d]: duplicate table %q", i, f.Table)
		}
		tables[f.Table] = true

		switch {
		case f.File != "" && f.Generate != nil:
			return fmt.Errorf("fixtures[%d]: file and generate are mutually exclusive", i)
		case f.File != "":
			if _, err := os.Stat(f.File); os.IsNotExist(err) {
				return fmt.Errorf("fixtures[%d]: file not found: %s", i, f.File)
			}
		case f.Generate != nil:
			if f.Generate.Kind != "star" && f.Generate.Kind != "offset" {
				return fmt.Errorf("fixtures[%d]: unknown generator kind %q (want star or offset)", i, f.Generate.Kind)
			}
			if f.Generate.Rows < 0 {
				return fmt.Errorf("fixtures[%d]: rows must not be negative", i)
			}
		default:
			return fmt.Errorf("fixtures[%d]: one of file or generate is required", i)
		}
	}

	for name, e := range s.Expect {
		switch engine.Status(e.Status) {
		case "", engine.StatusOK, engine.StatusFailed, engine.StatusCancelled:
		default:
			return fmt.Errorf("expect[%s]: unknown status %q", name, e.Status)
		}
		if e.Rows != nil && *e.Rows < 0 {
			return fmt.Errorf("expect[%s]: rows must not be negative", name)
		}
	}

	return nil
}
