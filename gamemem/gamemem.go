package gamemem

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrModuleNotLoaded is returned when a module base lookup fails.
	ErrModuleNotLoaded = errors.New("module not loaded")

	// ErrBadAddress is returned for reads/writes the target rejected.
	ErrBadAddress = errors.New("address not readable/writable")
)

// Memory is the one surface every other component goes through to touch
// game memory. Plain writes are for data regions; protected writes
// relax page protection for code regions and serialize against each
// other process-wide.
type Memory interface {
	ReadBytes(addr uintptr, n int) ([]byte, error)
	WriteBytes(addr uintptr, data []byte) error
	WriteBytesProtected(addr uintptr, data []byte) error
}

func ReadU8(m Memory, addr uintptr) (uint8, error) {
	b, err := m.ReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadU16(m Memory, addr uintptr) (uint16, error) {
	b, err := m.ReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func ReadU32(m Memory, addr uintptr) (uint32, error) {
	b, err := m.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func ReadU64(m Memory, addr uintptr) (uint64, error) {
	b, err := m.ReadBytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func ReadF32(m Memory, addr uintptr) (float32, error) {
	v, err := ReadU32(m, addr)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func WriteU8(m Memory, addr uintptr, v uint8) error {
	return m.WriteBytes(addr, []byte{v})
}

func WriteU16(m Memory, addr uintptr, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return m.WriteBytes(addr, b[:])
}

func WriteU32(m Memory, addr uintptr, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.WriteBytes(addr, b[:])
}

func WriteU64(m Memory, addr uintptr, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.WriteBytes(addr, b[:])
}

func WriteF32(m Memory, addr uintptr, v float32) error {
	return WriteU32(m, addr, math.Float32bits(v))
}
