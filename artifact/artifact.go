// Package artifact loads compiled contract artifacts produced by Hardhat and Foundry.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrArtifactNotFound is returned when no artifact matches the requested contract name.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrAmbiguousArtifact is returned when a bare contract name matches more than one artifact.
	ErrAmbiguousArtifact = errors.New("ambiguous artifact name")
	// ErrNotDeployable is returned for artifacts without creation bytecode, such as interfaces
	// and abstract contracts.
	ErrNotDeployable = errors.New("artifact has no creation bytecode")
	// ErrUnlinkedLibraries is returned when the creation bytecode still contains library
	// placeholders.
	ErrUnlinkedLibraries = errors.New("artifact bytecode has unlinked libraries")
	// ErrInvalidArtifact is returned when an artifact file cannot be decoded.
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// Format identifies the toolchain that produced an artifact.
type Format string

const (
	FormatHardhat Format = "hardhat"
	FormatFoundry Format = "foundry"
)

// Artifact is a compiled contract: its interface and the bytecode needed to create it.
type Artifact struct {
	ContractName     string
	SourceName       string
	ABI              abi.ABI
	Bytecode         []byte
	DeployedBytecode []byte
	Format           Format
	// Path is the file the artifact was read from.
	Path string
}

// FullyQualifiedName returns "<source>:<contract>", or the contract name when the source is
// unknown.
func (a *Artifact) FullyQualifiedName() string {
	if a.SourceName == "" {
		return a.ContractName
	}

	return a.SourceName + ":" + a.ContractName
}

// ConstructorInputs returns the constructor parameters declared in the ABI.
func (a *Artifact) ConstructorInputs() abi.Arguments {
	return a.ABI.Constructor.Inputs
}

type hardhatArtifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	LinkReferences   map[string]any  `json:"linkReferences"`
}

type foundryBytecode struct {
	Object         string         `json:"object"`
	LinkReferences map[string]any `json:"linkReferences"`
}

type foundryArtifact struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         foundryBytecode `json:"bytecode"`
	DeployedBytecode foundryBytecode `json:"deployedBytecode"`
	Metadata         struct {
		Settings struct {
			CompilationTarget map[string]string `json:"compilationTarget"`
		} `json:"settings"`
	} `json:"metadata"`
}

// ReadFile decodes the artifact at path.
func ReadFile(path string, format Format) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var a *Artifact
	switch format {
	case FormatHardhat:
		a, err = decodeHardhat(b)
	case FormatFoundry:
		a, err = decodeFoundry(b, strings.TrimSuffix(filepath.Base(path), ".json"))
	default:
		return nil, fmt.Errorf("unknown artifact format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Path = path

	return a, nil
}

func decodeHardhat(b []byte) (*Artifact, error) {
	var raw hardhatArtifact
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if raw.ContractName == "" {
		return nil, fmt.Errorf("%w: missing contractName", ErrInvalidArtifact)
	}

	a := &Artifact{
		ContractName: raw.ContractName,
		SourceName:   raw.SourceName,
		Format:       FormatHardhat,
	}

	return a, a.decodeCode(raw.ABI, raw.Bytecode, raw.DeployedBytecode, len(raw.LinkReferences) > 0)
}

func decodeFoundry(b []byte, contractName string) (*Artifact, error) {
	var raw foundryArtifact
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	a := &Artifact{
		ContractName: contractName,
		Format:       FormatFoundry,
	}
	for source, name := range raw.Metadata.Settings.CompilationTarget {
		a.SourceName, a.ContractName = source, name
	}

	return a, a.decodeCode(
		raw.ABI, raw.Bytecode.Object, raw.DeployedBytecode.Object, len(raw.Bytecode.LinkReferences) > 0,
	)
}

func (a *Artifact) decodeCode(rawABI json.RawMessage, bytecode, deployed string, linked bool) error {
	if len(bytes.TrimSpace(rawABI)) == 0 || string(rawABI) == "null" {
		return fmt.Errorf("%w: missing abi", ErrInvalidArtifact)
	}

	parsed, err := abi.JSON(bytes.NewReader(rawABI))
	if err != nil {
		return fmt.Errorf("%w: abi: %w", ErrInvalidArtifact, err)
	}
	a.ABI = parsed

	if linked || strings.Contains(bytecode, "__$") {
		return fmt.Errorf("%w: %s", ErrUnlinkedLibraries, a.ContractName)
	}

	if a.Bytecode, err = decodeHex(bytecode); err != nil {
		return fmt.Errorf("%w: bytecode: %w", ErrInvalidArtifact, err)
	}
	if len(a.Bytecode) == 0 {
		return fmt.Errorf("%w: %s is abstract or an interface", ErrNotDeployable, a.ContractName)
	}

	if a.DeployedBytecode, err = decodeHex(deployed); err != nil {
		return fmt.Errorf("%w: deployedBytecode: %w", ErrInvalidArtifact, err)
	}

	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}

	return hexutil.Decode(s)
}
