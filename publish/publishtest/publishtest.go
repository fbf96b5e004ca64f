// Package publishtest writes hardhat-shaped fixtures and fakes a JSON-RPC
// provider for tests.
package publishtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const (
	ContractName = "RewardDistribution"
	SourceName   = "contracts/RewardDistribution.sol"
	Bytecode     = "0x6080604052348015600f57600080fd5b50"
	SolcVersion  = "0.8.24"
	SolcLong     = "0.8.24+commit.e11b9ed9"
	BuildInfoID  = "5f3b2c0d9a1e"

	// HardhatKey is the first well-known hardhat development account.
	HardhatKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	HardhatAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

const ABI = `[
  {
    "inputs": [
      {"internalType": "address", "name": "_rewardTreasury", "type": "address"},
      {"internalType": "address", "name": "_token", "type": "address"}
    ],
    "stateMutability": "nonpayable",
    "type": "constructor"
  },
  {
    "inputs": [],
    "name": "token",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const Input = `{"language":"Solidity","sources":{"contracts/RewardDistribution.sol":{"content":"// SPDX-License-Identifier: MIT\npragma solidity ^0.8.24;\ncontract RewardDistribution {}"}},"settings":{"optimizer":{"enabled":true,"runs":200}}}`

// WriteArtifacts lays out artifacts/ the way hardhat does and returns its path.
func WriteArtifacts(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "artifacts")
	contractDir := filepath.Join(root, SourceName)
	buildInfoDir := filepath.Join(root, "build-info")

	mustMkdir(t, contractDir)
	mustMkdir(t, buildInfoDir)

	writeJSON(t, filepath.Join(contractDir, ContractName+".json"), map[string]any{
		"_format":          "hh-sol-artifact-1",
		"contractName":     ContractName,
		"sourceName":       SourceName,
		"abi":              json.RawMessage(ABI),
		"bytecode":         Bytecode,
		"deployedBytecode": "0x6080",
	})
	writeJSON(t, filepath.Join(contractDir, ContractName+".dbg.json"), map[string]any{
		"_format":   "hh-sol-dbg-1",
		"buildInfo": "../../build-info/" + BuildInfoID + ".json",
	})
	writeJSON(t, filepath.Join(buildInfoDir, BuildInfoID+".json"), map[string]any{
		"_format":         "hh-sol-build-info-1",
		"id":              BuildInfoID,
		"solcVersion":     SolcVersion,
		"solcLongVersion": SolcLong,
		"input":           json.RawMessage(Input),
	})
	return root
}

// WriteArgs writes a deploy arguments file and returns its path.
func WriteArgs(t *testing.T, rewardTreasury, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployargs", "deployRewardDistributionArgs.json")
	mustMkdir(t, filepath.Dir(path))
	writeJSON(t, path, map[string]string{
		"rewardTreasury": rewardTreasury,
		"token":          token,
	})
	return path
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
