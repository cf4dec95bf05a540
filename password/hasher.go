package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	phcAlgorithm = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltBytes   uint32 = 16
	minKeyBytes    uint32 = 16
)

// Config holds the Argon2id cost parameters. Memory is in KiB. The defaults
// returned by [DefaultConfig] target roughly 100ms per hash on commodity
// server hardware.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the recommended cost parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords with Argon2id. A Hasher is immutable
// after construction and safe for concurrent use.
type Hasher struct {
	config    Config
	dummyHash string
}

// New validates cfg and returns a [Hasher]. Construction also derives an
// internal reference hash used by [Hasher.DummyVerify].
func New(cfg Config) (*Hasher, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	h := &Hasher{config: cfg}

	// Reference hash of a random, never-disclosed password. DummyVerify
	// runs a full verification against it so that lookups for unknown
	// accounts cost the same as a real password mismatch.
	seed := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, err
	}
	dummy, err := h.Hash(base64.RawStdEncoding.EncodeToString(seed))
	if err != nil {
		return nil, err
	}
	h.dummyHash = dummy

	return h, nil
}

// Hash derives a salted Argon2id hash of plaintext and returns it in PHC
// string format. The plaintext is used byte-for-byte as provided (no Unicode
// normalization).
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of plaintext under the parameters embedded in
// encoded and compares in constant time. A mismatch is reported as
// (false, nil); an error is returned only for hashes that cannot be decoded.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	dec, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		dec.salt,
		dec.time,
		dec.memory,
		dec.parallelism,
		uint32(len(dec.key)),
	)

	return subtle.ConstantTimeCompare(computed, dec.key) == 1, nil
}

// DummyVerify performs a full verification against an internal reference
// hash and always returns false. Callers run it on login attempts for
// nonexistent or inactive accounts so that response timing does not reveal
// whether the account exists.
func (h *Hasher) DummyVerify(plaintext string) bool {
	_, _ = h.Verify(plaintext, h.dummyHash)
	return false
}

// NeedsRehash reports whether encoded was produced under parameters weaker
// than the Hasher's current configuration.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	dec, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	switch {
	case h.config.Memory > dec.memory:
		return true, nil
	case h.config.Time > dec.time:
		return true, nil
	case h.config.Parallelism > dec.parallelism:
		return true, nil
	case h.config.KeyLength != uint32(len(dec.key)):
		return true, nil
	}

	return false, nil
}

type decoded struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodePHC(encoded string) (*decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != phcAlgorithm {
		return nil, errors.New("unsupported algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	v, err := strconv.Atoi(version)
	if err != nil || v != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var dec decoded
	if err := decodeParams(parts[3], &dec); err != nil {
		return nil, err
	}

	if dec.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid salt encoding")
	}
	if uint32(len(dec.salt)) < minSaltBytes {
		return nil, errors.New("invalid salt length")
	}

	if dec.key, err = base64.StdEncoding.DecodeString(parts[5]); err != nil {
		return nil, errors.New("invalid key encoding")
	}
	if len(dec.key) == 0 {
		return nil, errors.New("invalid key length")
	}

	return &dec, nil
}

func decodeParams(s string, dec *decoded) error {
	pairs := strings.Split(s, ",")
	if len(pairs) != 3 {
		return errors.New("invalid parameter format")
	}

	var haveM, haveT, haveP bool
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}

		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			dec.memory = uint32(v)
			haveM = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			dec.time = uint32(v)
			haveT = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			dec.parallelism = uint8(v)
			haveP = true
		default:
			return errors.New("unsupported parameter")
		}
	}

	if !haveM || !haveT || !haveP {
		return errors.New("missing parameters")
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time cost must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltBytes {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyBytes {
		return errors.New("password key length must be >= 16")
	}
	return nil
}
