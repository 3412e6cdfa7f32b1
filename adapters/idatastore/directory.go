package idatastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/errors"
)

const (
	groupSuffix = ".cbor.zst"
	attrsFile   = "attrs" + groupSuffix
)

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Core deterministic encoding, except that floats keep their exact
	// float64 bits.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.ShortestFloat = cbor.ShortestFloatNone
	encOptions.NaNConvert = cbor.NaNConvertNone
	encOptions.InfConvert = cbor.InfConvertNone
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("idatastore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("idatastore: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("idatastore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("idatastore: zstd decoder initialization failed: " + err.Error())
	}
}

func encodeFile(path string, v any) error {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", filepath.Base(path))
	}
	return writeAtomic(path, zstdEncoder.EncodeAll(raw, nil))
}

func decodeFile(path string, v any) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return errors.StorageError(fmt.Sprintf("reading %s", path), err)
	}
	raw, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return errors.StorageError(fmt.Sprintf("decompressing %s", path), err)
	}
	if err := decMode.Unmarshal(raw, v); err != nil {
		return errors.StorageError(fmt.Sprintf("decoding %s", path), err)
	}
	return nil
}

// writeDirectory builds the directory next to path and swaps it in, so a
// failed save never leaves a mix of old and new groups.
func writeDirectory(path string, data *idata.InferenceData) error {
	staging, err := os.MkdirTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return errors.StorageError(fmt.Sprintf("writing %s", path), err)
	}

	for name, g := range data.Groups {
		if name == "attrs" || name == "" || strings.ContainsAny(name, `/\`) {
			return errors.InvalidInput(fmt.Sprintf("group name %q cannot be stored as a file", name))
		}
		if err := encodeFile(filepath.Join(staging, name+groupSuffix), g); err != nil {
			return err
		}
	}
	attrs := data.Attrs
	if attrs == nil {
		attrs = map[string]string{}
	}
	if err := encodeFile(filepath.Join(staging, attrsFile), attrs); err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return errors.StorageError(fmt.Sprintf("replacing %s", path), err)
	}
	if err := os.Rename(staging, path); err != nil {
		return errors.StorageError(fmt.Sprintf("replacing %s", path), err)
	}
	return nil
}

func readDirectory(path string) (*idata.InferenceData, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("reading %s", path), err)
	}
	data := &idata.InferenceData{Groups: map[string]*idata.Group{}, Attrs: map[string]string{}}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, groupSuffix) {
			continue
		}
		file := filepath.Join(path, name)
		if name == attrsFile {
			if err := decodeFile(file, &data.Attrs); err != nil {
				return nil, err
			}
			continue
		}
		var g idata.Group
		if err := decodeFile(file, &g); err != nil {
			return nil, err
		}
		for vname, v := range g.Variables {
			if err := v.Validate(); err != nil {
				return nil, errors.Wrapf(err, "%s: %s", file, vname)
			}
		}
		data.Groups[strings.TrimSuffix(name, groupSuffix)] = &g
	}
	return data, nil
}
