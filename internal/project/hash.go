package project

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// Digest - фиксированный 256 битный хеш содержимого файла
type Digest [32]byte

// HashBytes hashes raw file content.
func HashBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

// HashFile hashes the content of path.
func HashFile(path string) (Digest, error) {
	// #nosec G304 -- path comes from the include list of a finished build
	data, err := os.ReadFile(path)
	if err != nil {
		return Digest{}, err
	}
	return HashBytes(data), nil
}

// Combine строит ключ: H( first || d1 || d2 ... ).
// Порядок должен быть детерминированным.
func Combine(first Digest, rest ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(first[:])
	for _, d := range rest {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashString hashes s; used to fold options into cache keys.
func HashString(s string) Digest {
	return sha256.Sum256([]byte(s))
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d was never set.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
