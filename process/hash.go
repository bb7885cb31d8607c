package process

import (
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/xxh3"
)

// ErrHashMismatch means the on-disk image is not the build the offsets
// were mapped against. Patching an unknown build is unsafe.
var ErrHashMismatch = errors.New("image hash mismatch")

// ImageHash returns the xxh3-64 of the file at path.
func ImageHash(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxh3.Hash(b), nil
}

// VerifyImage hashes the file at path and compares against want.
func VerifyImage(path string, want uint64) error {
	got, err := ImageHash(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	if got != want {
		return fmt.Errorf("%s: got %d, want %d: %w", path, got, want, ErrHashMismatch)
	}
	return nil
}
