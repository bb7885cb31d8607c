package hook

// x64 shim and ring-buffer layout. One cave per hook:
//
//	cave+0x000  shim code
//	cave+0x100  u64 ring write index
//	cave+0x108  ringSlots * slotSize record bytes
//
// The shim clobbers only rax/rbx/rflags, all saved around it, so the
// captured argument registers reach the ring unmodified.

const (
	ringIdxOff   = 0x100
	ringSlotsOff = 0x108
	ringSlots    = 64
	slotSize     = 64 // room for 7 captured regs + padding

	caveSize = ringSlotsOff + ringSlots*slotSize

	// JumpLen is the site patch: jmp [rip+0] followed by the absolute
	// cave address.
	JumpLen = 14
)

func putU64(b []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		b[off+i] = byte(v >> (8 * i))
	}
}

// siteJump builds the 14-byte absolute jump to the cave, NOP-padded to
// the stolen length.
func siteJump(cave uintptr, stolenLen int) []byte {
	out := make([]byte, stolenLen)
	out[0], out[1] = 0xFF, 0x25 // jmp [rip+0]
	putU64(out, 6, uint64(cave))
	for i := JumpLen; i < stolenLen; i++ {
		out[i] = 0x90
	}
	return out
}

// spill encodes mov [rbx+disp8], reg for the capturable registers.
func spill(reg Reg, disp byte) []byte {
	switch reg {
	case RCX:
		return []byte{0x48, 0x89, 0x4B, disp}
	case RDX:
		return []byte{0x48, 0x89, 0x53, disp}
	case R8:
		return []byte{0x4C, 0x89, 0x43, disp}
	case R9:
		return []byte{0x4C, 0x89, 0x4B, disp}
	case RSI:
		return []byte{0x48, 0x89, 0x73, disp}
	case RDI:
		return []byte{0x48, 0x89, 0x7B, disp}
	case RBP:
		return []byte{0x48, 0x89, 0x6B, disp}
	}
	return nil
}

// buildShim assembles the cave body:
//
//	push rax / push rbx / pushfq
//	rax = ring index & 63, rbx = slot address
//	mov [rbx+8*i], capture[i] ...
//	ring index++
//	popfq / pop rbx / pop rax
//	<stolen bytes>
//	jmp [rip+0] -> site+stolenLen
func buildShim(cave, site uintptr, stolen []byte, capture []Reg) []byte {
	idxAddr := uint64(cave + ringIdxOff)
	slotsAddr := uint64(cave + ringSlotsOff)

	code := []byte{
		0x50, // push rax
		0x53, // push rbx
		0x9C, // pushfq
	}

	// mov rax, [idxAddr]
	code = append(code, 0x48, 0xA1)
	code = appendU64(code, idxAddr)
	// and rax, ringSlots-1
	code = append(code, 0x48, 0x83, 0xE0, ringSlots-1)
	// shl rax, 6  (slotSize == 64)
	code = append(code, 0x48, 0xC1, 0xE0, 0x06)
	// mov rbx, slotsAddr
	code = append(code, 0x48, 0xBB)
	code = appendU64(code, slotsAddr)
	// add rbx, rax
	code = append(code, 0x48, 0x01, 0xC3)

	for i, reg := range capture {
		code = append(code, spill(reg, byte(8*i))...)
	}

	// mov rax, [idxAddr] / inc rax / mov [idxAddr], rax
	code = append(code, 0x48, 0xA1)
	code = appendU64(code, idxAddr)
	code = append(code, 0x48, 0xFF, 0xC0)
	code = append(code, 0x48, 0xA3)
	code = appendU64(code, idxAddr)

	code = append(code,
		0x9D, // popfq
		0x5B, // pop rbx
		0x58, // pop rax
	)

	code = append(code, stolen...)

	// jmp [rip+0] -> resume past the site patch
	code = append(code, 0xFF, 0x25, 0x00, 0x00, 0x00, 0x00)
	code = appendU64(code, uint64(site)+uint64(len(stolen)))

	return code
}

func appendU64(b []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}
