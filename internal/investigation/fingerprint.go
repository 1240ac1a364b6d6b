package investigation

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint is the SHA-256 cache key of a request.
type Fingerprint [32]byte

// ComputeFingerprint derives the cache key from everything that can change the
// model's answer. Params are serialized as JSON with sorted keys and every
// field is length-prefixed, so the digest is independent of map order and
// distinct field splits never collide.
//
// Params must be finite; callers validate them first.
func ComputeFingerprint(extractedText, prompt string, params Params, modelName string) Fingerprint {
	// encoding/json sorts map keys
	encoded, err := json.Marshal(map[string]float64(params))
	if err != nil {
		panic(fmt.Sprintf("investigation: fingerprint params: %v", err))
	}

	h := sha256.New()
	var lenBuf [8]byte
	for _, field := range [][]byte{[]byte(extractedText), []byte(prompt), encoded, []byte(modelName)} {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:])
		h.Write(field)
	}

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// String returns the lowercase hex encoding used as the storage key.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether f was never computed.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// ParseFingerprint decodes a 64-character hex key.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("decode fingerprint: %w", err)
	}
	if len(raw) != len(fp) {
		return fp, fmt.Errorf("fingerprint must be %d bytes, got %d", len(fp), len(raw))
	}
	copy(fp[:], raw)
	return fp, nil
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	if f.IsZero() {
		return []byte{}, nil
	}
	return []byte(f.String()), nil
}

func (f *Fingerprint) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*f = Fingerprint{}
		return nil
	}
	fp, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = fp
	return nil
}
