package patch

import (
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmc3rando/gamemem"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteBytesJournalsOriginal(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	require.NoError(t, mem.WriteBytes(0x1000, []byte{0xAA, 0xBB, 0xCC}))
	e := NewEngine(mem, testLogger())

	require.NoError(t, e.WriteBytes("p", 0x1000, []byte{1, 2, 3}))
	got, _ := mem.ReadBytes(0x1000, 3)
	assert.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, e.Restore("p"))
	got, _ = mem.ReadBytes(0x1000, 3)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, got)
	assert.Zero(t, e.ActiveCount())
}

func TestRestoreUnknownName(t *testing.T) {
	e := NewEngine(gamemem.NewFakeMemory(), testLogger())
	assert.ErrorIs(t, e.Restore("nope"), ErrUnknownPatch)
}

func TestRestoreAllReverseOrder(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	require.NoError(t, mem.WriteBytes(0x2000, []byte{0x11}))
	e := NewEngine(mem, testLogger())

	// Two overlapping patches; reverse replay must land on the
	// original byte, not the first patch's.
	require.NoError(t, e.PokeByte("a", 0x2000, 0x22))
	require.NoError(t, e.PokeByte("b", 0x2000, 0x33))

	require.NoError(t, e.RestoreAll())
	b, _ := gamemem.ReadU8(mem, 0x2000)
	assert.Equal(t, uint8(0x11), b)
	assert.Zero(t, e.ActiveCount())
}

func TestFill(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	e := NewEngine(mem, testLogger())

	require.NoError(t, e.Fill("mode", 0x3000, 16, 0x01))
	got, _ := mem.ReadBytes(0x3000, 16)
	for _, b := range got {
		assert.Equal(t, byte(0x01), b)
	}

	require.NoError(t, e.RestoreAll())
	got, _ = mem.ReadBytes(0x3000, 16)
	for _, b := range got {
		assert.Equal(t, byte(0x00), b)
	}
}

func TestRewriteRelativeCall(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	// E8 rel32 with displacement 0x100.
	ins := []byte{0xE8, 0x00, 0x01, 0x00, 0x00}
	require.NoError(t, mem.WriteBytes(0x4000, ins))
	e := NewEngine(mem, testLogger())

	require.NoError(t, e.RewriteRelativeCall("call", 0x4000, 0x40))
	got, _ := mem.ReadBytes(0x4000, 5)
	assert.Equal(t, byte(0xE8), got[0])
	assert.Equal(t, int32(0x100-0x40), int32(binary.LittleEndian.Uint32(got[1:])))
}

func TestRewriteRelativeCallOpcodeMismatch(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	require.NoError(t, mem.WriteBytes(0x4000, []byte{0x90, 0, 0, 0, 0}))
	e := NewEngine(mem, testLogger())

	assert.ErrorIs(t, e.RewriteRelativeCall("call", 0x4000, 1), ErrOpcodeMismatch)
	assert.Zero(t, e.ActiveCount(), "failed rewrite must not journal")
}

func TestRewriteRelativeJmp(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	require.NoError(t, mem.WriteBytes(0x5000, []byte{0xE9, 0x10, 0x00, 0x00, 0x00}))
	e := NewEngine(mem, testLogger())

	require.NoError(t, e.RewriteRelativeJmp("jmp", 0x5000, 0x10))
	got, _ := mem.ReadBytes(0x5000, 5)
	assert.Equal(t, int32(0), int32(binary.LittleEndian.Uint32(got[1:])))
}

func TestAbsThunkEncoding(t *testing.T) {
	th := AbsThunk(0x1122334455667788, AbsThunkLen)
	require.Len(t, th, AbsThunkLen)

	assert.Equal(t, byte(0x50), th[0], "push rax")
	assert.Equal(t, []byte{0x48, 0xB8}, th[1:3], "mov rax, imm64")
	assert.Equal(t, uint64(0x1122334455667788), binary.LittleEndian.Uint64(th[3:11]))
	assert.Equal(t, []byte{0xFF, 0xD0}, th[11:13], "call rax")
	assert.Equal(t, byte(0x58), th[13], "pop rax")
}

func TestAbsThunkNopPadding(t *testing.T) {
	th := AbsThunk(0x1000, AbsThunkLen+3)
	require.Len(t, th, AbsThunkLen+3)
	assert.Equal(t, []byte{0x90, 0x90, 0x90}, th[AbsThunkLen:])
}

func TestInstallAbsThunkRoundTrip(t *testing.T) {
	mem := gamemem.NewFakeMemory()
	orig := []byte{0x48, 0x89, 0x5C, 0x24, 0x08, 0x57, 0x48, 0x83, 0xEC, 0x20, 0x8B, 0xDA, 0x8B, 0xF9, 0x90, 0x90}
	require.NoError(t, mem.WriteBytes(0x6000, orig))
	e := NewEngine(mem, testLogger())

	require.NoError(t, e.InstallAbsThunk("thunk", 0x6000, 0xDEAD, len(orig)))
	assert.True(t, e.IsActive("thunk"))

	require.NoError(t, e.Restore("thunk"))
	got, _ := mem.ReadBytes(0x6000, len(orig))
	assert.Equal(t, orig, got)
}
