package ir

import "fmt"

// RealReg is a physical amd64 register.
type RealReg byte

const (
	RealRegInvalid RealReg = iota
	RAX
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
	realRegEnd
)

// NumRealRegs is the number of physical registers.
const NumRealRegs = int(realRegEnd) - 1

// Valid returns true if r names a physical register.
func (r RealReg) Valid() bool {
	return r > RealRegInvalid && r < realRegEnd
}

// IsVector returns true for the XMM registers.
func (r RealReg) IsVector() bool {
	return r >= XMM0 && r <= XMM15
}

// Reserved returns true for the registers the backend keeps for itself and
// which therefore cannot be assigned: the stack pointer, R10 (scratch), R11
// (link register) and XMM15 (vector scratch).
func (r RealReg) Reserved() bool {
	switch r {
	case RSP, R10, R11, XMM15:
		return true
	}
	return false
}

var realRegNames = [...]string{
	RAX: "rax", RCX: "rcx", RDX: "rdx", RBX: "rbx", RSP: "rsp", RBP: "rbp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11", R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

// String implements fmt.Stringer.
func (r RealReg) String() string {
	switch {
	case r.IsVector():
		return fmt.Sprintf("%%xmm%d", r-XMM0)
	case r.Valid():
		return "%" + realRegNames[r]
	default:
		return fmt.Sprintf("%%invalid%d", r)
	}
}

// Location is where the allocator put a virtual register: a physical
// register or a slot of the kernel frame. The zero value is unassigned.
//
// The low byte holds the kind and the rest the payload.
type Location uint64

const (
	locationKindRegister  = 1
	locationKindFrameSlot = 2
)

// LocationUnassigned is the Location of a virtual register not yet assigned.
const LocationUnassigned Location = 0

// RegisterLocation returns the Location of r.
func RegisterLocation(r RealReg) Location {
	if !r.Valid() {
		panic(fmt.Sprintf("BUG: invalid register %d", r))
	}
	return Location(r)<<8 | locationKindRegister
}

// FrameSlotLocation returns the Location of the frame slot at the given byte
// offset from the stack pointer after the entry sequence.
func FrameSlotLocation(offset int32) Location {
	if offset < 0 {
		panic(fmt.Sprintf("BUG: negative frame slot offset %d", offset))
	}
	return Location(uint32(offset))<<8 | locationKindFrameSlot
}

// Valid returns true if l is assigned.
func (l Location) Valid() bool {
	return l != LocationUnassigned
}

// IsRegister returns true if l is a physical register.
func (l Location) IsRegister() bool {
	return l&0xff == locationKindRegister
}

// IsFrameSlot returns true if l is a frame slot.
func (l Location) IsFrameSlot() bool {
	return l&0xff == locationKindFrameSlot
}

// Register returns the physical register of l.
func (l Location) Register() RealReg {
	if !l.IsRegister() {
		panic(fmt.Sprintf("BUG: %s is not a register", l))
	}
	return RealReg(l >> 8)
}

// FrameOffset returns the byte offset of the frame slot l.
func (l Location) FrameOffset() int32 {
	if !l.IsFrameSlot() {
		panic(fmt.Sprintf("BUG: %s is not a frame slot", l))
	}
	return int32(uint32(l >> 8))
}

// String implements fmt.Stringer.
func (l Location) String() string {
	switch {
	case l.IsRegister():
		return RealReg(l >> 8).String()
	case l.IsFrameSlot():
		return fmt.Sprintf("%d(%%rsp)", int32(uint32(l>>8)))
	case l == LocationUnassigned:
		return "unassigned"
	default:
		return fmt.Sprintf("Location(%#x)", uint64(l))
	}
}
