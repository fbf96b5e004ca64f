package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const buildInfoDir = "build-info"

// Artifact is a hardhat compilation artifact.
type Artifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`

	path string
}

// BuildInfo is the compiler input a hardhat artifact was produced from.
type BuildInfo struct {
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// FindArtifactPath walks dir for <contractName>.json, ignoring build-info.
func FindArtifactPath(dir, contractName string) (string, error) {
	var artifactPath string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == buildInfoDir {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Name() == contractName+".json" {
			artifactPath = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: artifacts dir %s does not exist", ErrArtifactNotFound, contractName, dir)
		}
		return "", fmt.Errorf("walk %s: %w", dir, err)
	}

	if artifactPath == "" {
		return "", fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, contractName, dir)
	}
	return artifactPath, nil
}

func LoadArtifact(dir, contractName string) (*Artifact, error) {
	path, err := FindArtifactPath(dir, contractName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if artifact.ContractName != contractName {
		return nil, fmt.Errorf("%w: %s holds %q", ErrArtifactNotFound, path, artifact.ContractName)
	}
	artifact.path = path
	return &artifact, nil
}

func (a *Artifact) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse %s abi: %w", a.ContractName, err)
	}
	return parsed, nil
}

// CreationCode decodes the creation bytecode. Abstract contracts and
// unlinked libraries are rejected.
func (a *Artifact) CreationCode() ([]byte, error) {
	if strings.Contains(a.Bytecode, "__$") {
		return nil, fmt.Errorf("%s bytecode has unlinked library references", a.ContractName)
	}
	code, err := hexutil.Decode(a.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decode %s bytecode: %w", a.ContractName, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%s has no creation bytecode", a.ContractName)
	}
	return code, nil
}

// FullyQualifiedName is the source:contract form explorers expect.
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// LoadBuildInfo follows the sibling .dbg.json to the build-info file.
func (a *Artifact) LoadBuildInfo() (*BuildInfo, error) {
	dbgPath := strings.TrimSuffix(a.path, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("read debug file %s: %w", dbgPath, err)
	}

	var dbg debugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("parse debug file %s: %w", dbgPath, err)
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("debug file %s has no buildInfo", dbgPath)
	}

	buildInfoPath := dbg.BuildInfo
	if !filepath.IsAbs(buildInfoPath) {
		buildInfoPath = filepath.Join(filepath.Dir(dbgPath), buildInfoPath)
	}
	data, err = os.ReadFile(buildInfoPath)
	if err != nil {
		return nil, fmt.Errorf("read build info %s: %w", buildInfoPath, err)
	}

	var info BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse build info %s: %w", buildInfoPath, err)
	}
	if info.SolcLongVersion == "" || len(info.Input) == 0 {
		return nil, fmt.Errorf("build info %s is missing compiler version or input", buildInfoPath)
	}
	return &info, nil
}
