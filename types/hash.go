package types

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// HashLength is the length of a peer hash in its native encoding.
	HashLength = 12
	// HashSize is the number of bytes a peer hash encodes.
	HashSize = 9
	// HexHashLength is the length of a peer hash in hex encoding.
	HexHashLength = 2 * HashSize
)

// ErrInvalidHash is returned when a string is not a peer hash.
var ErrInvalidHash = errors.New("invalid peer hash")

// ValidateHash checks that hash has the native length and uses the url safe
// base64 alphabet only.
func ValidateHash(hash string) error {
	if len(hash) != HashLength {
		return fmt.Errorf("%w: expected length %d, got %d", ErrInvalidHash, HashLength, len(hash))
	}
	for i := 0; i < len(hash); i++ {
		if !isHashChar(hash[i]) {
			return fmt.Errorf("%w: illegal character %q", ErrInvalidHash, hash[i])
		}
	}
	return nil
}

func isHashChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

// RandomHash returns a new random peer hash.
func RandomHash() string {
	bz := make([]byte, HashSize)
	if _, err := rand.Read(bz); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(bz)
}

// HexHashToB64 converts a hex encoded peer hash into the native encoding.
// Hex digits are accepted in either case.
func HexHashToB64(hexHash string) (string, error) {
	if len(hexHash) != HexHashLength {
		return "", fmt.Errorf("%w: expected %d hex digits, got %d", ErrInvalidHash, HexHashLength, len(hexHash))
	}
	bz, err := hex.DecodeString(hexHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return base64.RawURLEncoding.EncodeToString(bz), nil
}

// B64HashToHex converts a native peer hash into lowercase hex.
func B64HashToHex(hash string) (string, error) {
	if err := ValidateHash(hash); err != nil {
		return "", err
	}
	bz, err := base64.RawURLEncoding.DecodeString(hash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return hex.EncodeToString(bz), nil
}
