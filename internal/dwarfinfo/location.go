package dwarfinfo

import (
	"encoding/binary"
	"fmt"
)

// DWARF expression opcodes understood by MemberOffset.
const (
	opConst1u    = 0x08
	opConst2u    = 0x0a
	opConst4u    = 0x0c
	opConst8u    = 0x0e
	opConstu     = 0x10
	opPlusUconst = 0x23
)

// MemberOffset decodes the byte offset encoded by a data_member_location
// expression. Only the single-operation forms emitted by compilers for
// member layouts are supported (DW_OP_plus_uconst, DW_OP_constu and the
// fixed-size DW_OP_constNu forms).
func MemberOffset(expr []byte, order binary.ByteOrder) (uint64, error) {
	if len(expr) == 0 {
		return 0, fmt.Errorf("empty member location expression")
	}
	if order == nil {
		order = binary.LittleEndian
	}

	op := expr[0]
	operand := expr[1:]

	switch op {
	case opPlusUconst, opConstu:
		v, n := decodeULEB128(operand)
		if n == 0 {
			return 0, fmt.Errorf("opcode 0x%02x: invalid ULEB128", op)
		}
		return v, nil

	case opConst1u:
		if len(operand) < 1 {
			return 0, fmt.Errorf("DW_OP_const1u: truncated expression")
		}
		return uint64(operand[0]), nil

	case opConst2u:
		if len(operand) < 2 {
			return 0, fmt.Errorf("DW_OP_const2u: truncated expression")
		}
		return uint64(order.Uint16(operand)), nil

	case opConst4u:
		if len(operand) < 4 {
			return 0, fmt.Errorf("DW_OP_const4u: truncated expression")
		}
		return uint64(order.Uint32(operand)), nil

	case opConst8u:
		if len(operand) < 8 {
			return 0, fmt.Errorf("DW_OP_const8u: truncated expression")
		}
		return order.Uint64(operand), nil

	default:
		return 0, fmt.Errorf("unsupported member location opcode: 0x%02x", op)
	}
}

// decodeULEB128 decodes an unsigned LEB128 value.
// Returns the value and number of bytes consumed (0 if truncated).
func decodeULEB128(data []byte) (uint64, int) {
	var result uint64
	var shift uint

	for i := 0; i < len(data) && i < 10; i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}

	return 0, 0
}
