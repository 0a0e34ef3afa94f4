// Package hashgen computes message digests of text, files and streams.
package hashgen

import (
	"crypto/md5"  // #nosec G501 -- checksums only
	"crypto/sha1" // #nosec G505 -- checksums only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"snaptools/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// ErrUnknownAlgorithm is returned by Parse for unsupported names.
var ErrUnknownAlgorithm = errors.New("hashgen: unknown algorithm")

// Algorithm names a digest.
type Algorithm string

const (
	MD5        Algorithm = "MD5"
	SHA1       Algorithm = "SHA-1"
	SHA256     Algorithm = "SHA-256"
	SHA384     Algorithm = "SHA-384"
	SHA512     Algorithm = "SHA-512"
	SHA3_256   Algorithm = "SHA3-256"
	BLAKE2b256 Algorithm = "BLAKE2b-256"
)

// Algorithms lists every supported digest in display order.
var Algorithms = []Algorithm{MD5, SHA1, SHA256, SHA384, SHA512, SHA3_256, BLAKE2b256}

// DefaultAlgorithms is the set computed when none is requested.
var DefaultAlgorithms = []Algorithm{MD5, SHA1, SHA256, SHA384, SHA512}

// Digest is one computed hash.
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case MD5:
		return md5.New() // #nosec G401 -- checksums only
	case SHA1:
		return sha1.New() // #nosec G401 -- checksums only
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	case SHA3_256:
		return sha3.New256()
	case BLAKE2b256:
		h, _ := blake2b.New256(nil) // only fails for oversized keys
		return h
	}
	return nil
}

func normalize(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToUpper(strings.TrimSpace(name)))
}

// Parse resolves an algorithm name case-insensitively, with or without
// dashes ("sha256", "SHA-256" and "Sha_256" are equivalent).
func Parse(name string) (Algorithm, error) {
	n := normalize(name)
	for _, a := range Algorithms {
		if normalize(string(a)) == n {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// ParseList resolves a list of names, dropping duplicates.
func ParseList(names []string) ([]Algorithm, error) {
	var out []Algorithm
	seen := make(map[Algorithm]bool)
	for _, name := range names {
		a, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out, nil
}

const bufSize = 1 << 20

// Sum reads r once and returns one lower-case hex digest per algorithm, in
// the order given. With no algorithms DefaultAlgorithms is used. onProgress,
// if set, receives byte counts as they are hashed.
func Sum(r io.Reader, onProgress func(n int64), algos ...Algorithm) ([]Digest, error) {
	if len(algos) == 0 {
		algos = DefaultAlgorithms
	}

	hashes := make([]hash.Hash, len(algos))
	writers := make([]io.Writer, len(algos))
	for i, a := range algos {
		h := a.newHash()
		if h == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
		}
		hashes[i] = h
		writers[i] = h
	}
	w := io.MultiWriter(writers...)

	timer := logging.StartTimer(logging.CategoryHash, "hash")
	buf := make([]byte, bufSize)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return nil, err
			}
			total += int64(n)
			if onProgress != nil {
				onProgress(int64(n))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("failed to read input: %w", rerr)
		}
	}

	out := make([]Digest, len(algos))
	for i, h := range hashes {
		out[i] = Digest{Algorithm: algos[i], Hex: hex.EncodeToString(h.Sum(nil))}
	}
	timer.Stop(zap.Int64("bytes", total), zap.Int("algorithms", len(algos)))
	return out, nil
}

// SumString hashes the UTF-8 bytes of s.
func SumString(s string, algos ...Algorithm) ([]Digest, error) {
	return Sum(strings.NewReader(s), nil, algos...)
}

// SumFile hashes the file at path.
func SumFile(path string, onProgress func(n int64), algos ...Algorithm) ([]Digest, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	logging.Get(logging.CategoryHash).Debug("hashing file", zap.String("path", path))
	return Sum(f, onProgress, algos...)
}
