// Package encoding packs chunk voxel arrays as run-length varint pairs. Sculpted volumes
// are mostly long runs of empty or one material, so a full 8³ chunk usually shrinks to a
// few dozen bytes.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"voxelsculpt.ai/internal/sim/voxel"
)

// AppendRLE appends (value, run_len) varint pairs for vals to dst.
func AppendRLE(dst []byte, vals []voxel.Value) []byte {
	buf := bytes.NewBuffer(dst)
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(vals) {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return buf.Bytes()
}

// DecodeRLE expands varint pairs into exactly want voxels.
func DecodeRLE(raw []byte, want int) ([]voxel.Value, error) {
	out := make([]voxel.Value, 0, want)
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFF {
			return nil, fmt.Errorf("voxel value too large: %d", v)
		}
		if run > uint64(want-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d voxels", run, want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, voxel.Value(v))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d voxels, want %d", len(out), want)
	}
	return out, nil
}

// EncodeRLE is AppendRLE as base64, for JSON messages.
func EncodeRLE(vals []voxel.Value) string {
	return base64.StdEncoding.EncodeToString(AppendRLE(nil, vals))
}

func DecodeRLEString(b64 string, want int) ([]voxel.Value, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return DecodeRLE(raw, want)
}
