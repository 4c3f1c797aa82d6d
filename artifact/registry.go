package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Registry resolves a contract name to its compiled artifact.
type Registry interface {
	Resolve(name string) (*Artifact, error)
}

var _ Registry = (*DirRegistry)(nil)

// DirRegistry resolves artifacts from a build output directory laid out as
// <root>/<path/to/File.sol>/<Contract>.json.
type DirRegistry struct {
	root   string
	format Format
}

// HardhatRegistry returns a registry over a Hardhat artifacts directory.
func HardhatRegistry(root string) *DirRegistry {
	return &DirRegistry{root: root, format: FormatHardhat}
}

// FoundryRegistry returns a registry over a Foundry out directory.
func FoundryRegistry(root string) *DirRegistry {
	return &DirRegistry{root: root, format: FormatFoundry}
}

// Root returns the artifacts directory.
func (r *DirRegistry) Root() string { return r.root }

// Format returns the artifact format the registry reads.
func (r *DirRegistry) Format() Format { return r.format }

// Resolve finds the artifact for name. The name is either a bare contract name
// ("SimpleScholarDAO") or fully qualified ("contracts/SimpleScholarDAO.sol:SimpleScholarDAO").
func (r *DirRegistry) Resolve(name string) (*Artifact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty contract name", ErrArtifactNotFound)
	}

	if source, contract, ok := strings.Cut(name, ":"); ok {
		return r.resolveQualified(source, contract)
	}

	paths, err := r.find(name)
	if err != nil {
		return nil, err
	}

	switch len(paths) {
	case 0:
		return nil, fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, r.root)
	case 1:
		return ReadFile(paths[0], r.format)
	}

	candidates := make([]string, 0, len(paths))
	for _, p := range paths {
		candidates = append(candidates, r.qualifiedName(p))
	}
	slices.Sort(candidates)

	return nil, fmt.Errorf("%w: %s matches %s, use a fully qualified name",
		ErrAmbiguousArtifact, name, strings.Join(candidates, ", "),
	)
}

func (r *DirRegistry) resolveQualified(source, contract string) (*Artifact, error) {
	dir := source
	if r.format == FormatFoundry {
		// Foundry flattens the source path to the file name.
		dir = filepath.Base(source)
	}

	path := filepath.Join(r.root, filepath.FromSlash(dir), contract+".json")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s:%s in %s", ErrArtifactNotFound, source, contract, r.root)
		}

		return nil, fmt.Errorf("failed to stat artifact %s: %w", path, err)
	}

	a, err := ReadFile(path, r.format)
	if err != nil {
		return nil, err
	}
	if a.SourceName != "" && a.SourceName != source {
		return nil, fmt.Errorf("%w: %s:%s in %s", ErrArtifactNotFound, source, contract, r.root)
	}

	return a, nil
}

// find walks the registry for <name>.json files inside *.sol directories.
func (r *DirRegistry) find(name string) ([]string, error) {
	if _, err := os.Stat(r.root); err != nil {
		return nil, fmt.Errorf("%w: artifacts directory %s: %w", ErrArtifactNotFound, r.root, err)
	}

	var paths []string
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}

			return nil
		}
		if strings.HasSuffix(d.Name(), ".dbg.json") || d.Name() != name+".json" {
			return nil
		}
		if !strings.HasSuffix(filepath.Dir(path), ".sol") {
			return nil
		}
		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search artifacts in %s: %w", r.root, err)
	}

	return paths, nil
}

func (r *DirRegistry) qualifiedName(path string) string {
	if a, err := ReadFile(path, r.format); err == nil && a.SourceName != "" {
		return a.FullyQualifiedName()
	}

	rel, err := filepath.Rel(r.root, filepath.Dir(path))
	if err != nil {
		rel = filepath.Dir(path)
	}

	return filepath.ToSlash(rel) + ":" + strings.TrimSuffix(filepath.Base(path), ".json")
}

// foundryConfig is the subset of foundry.toml used to locate build output.
type foundryConfig struct {
	Profile map[string]struct {
		Out string `toml:"out"`
	} `toml:"profile"`
}

// Detect returns the registry for a project directory. A foundry.toml selects the Foundry layout
// with the default profile's out directory (default "out"), otherwise the Hardhat artifacts
// directory is used.
func Detect(projectDir string) (*DirRegistry, error) {
	b, err := os.ReadFile(filepath.Join(projectDir, "foundry.toml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return HardhatRegistry(filepath.Join(projectDir, "artifacts")), nil
	case err != nil:
		return nil, fmt.Errorf("failed to read foundry.toml: %w", err)
	}

	var cfg foundryConfig
	if err = toml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse foundry.toml: %w", err)
	}

	out := "out"
	if p, ok := cfg.Profile["default"]; ok && p.Out != "" {
		out = p.Out
	}

	return FoundryRegistry(filepath.Join(projectDir, out)), nil
}
