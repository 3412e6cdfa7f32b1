package run

import (
	"fmt"
	"strconv"

	"github.com/teddygroves/bibat/domain/core"
)

// Fingerprint identifies the inputs of a run. Two runs with the same
// fingerprint fitted the same configuration to the same data with the same
// seed and code version.
type Fingerprint struct {
	ConfigHash  core.Hash `json:"config_hash"`
	DataHash    core.Hash `json:"data_hash"`
	Seed        int64     `json:"seed"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"`
}

// NewFingerprint hashes the raw configuration and prepared-data bytes
// together with the seed and code version.
func NewFingerprint(config, data []byte, seed int64, codeVersion string) Fingerprint {
	configHash := core.NewHash(config)
	dataHash := core.NewHash(data)
	return Fingerprint{
		ConfigHash:  configHash,
		DataHash:    dataHash,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeFingerprint(configHash, dataHash, seed, codeVersion),
	}
}

func computeFingerprint(configHash, dataHash core.Hash, seed int64, codeVersion string) core.Hash {
	return core.HashParts(
		[]byte("config:"+configHash.String()),
		[]byte("data:"+dataHash.String()),
		[]byte("seed:"+strconv.FormatInt(seed, 10)),
		[]byte("code:"+codeVersion),
	)
}

// Verify recomputes the fingerprint from its parts.
func (f Fingerprint) Verify() error {
	want := computeFingerprint(f.ConfigHash, f.DataHash, f.Seed, f.CodeVersion)
	if f.Fingerprint != want {
		return fmt.Errorf("fingerprint %s does not match its inputs (want %s)", f.Fingerprint.Short(), want.Short())
	}
	return nil
}
