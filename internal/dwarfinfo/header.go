package dwarfinfo

import (
	"debug/dwarf"
	"encoding/binary"
)

// DWARF 5 unit types whose headers carry extra fields.
const (
	unitTypeType         = 0x02
	unitTypeSkeleton     = 0x04
	unitTypeSplitCompile = 0x05
	unitTypeSplitType    = 0x06
)

// unitVersions scans the raw .debug_info section and maps the offset of
// each unit's root entry to the version recorded in its header. Scanning
// stops at the first malformed header.
func unitVersions(info []byte, order binary.ByteOrder) map[dwarf.Offset]int {
	versions := make(map[dwarf.Offset]int)
	if order == nil {
		return versions
	}

	off := 0
	for off+4 <= len(info) {
		length := uint64(order.Uint32(info[off:]))
		off += 4

		offsetSize := 4
		switch {
		case length == 0xffffffff:
			if off+8 > len(info) {
				return versions
			}
			length = order.Uint64(info[off:])
			off += 8
			offsetSize = 8
		case length >= 0xfffffff0:
			return versions
		}

		if length < 2 || length > uint64(len(info)-off) {
			return versions
		}
		end := off + int(length)

		version := int(order.Uint16(info[off:]))
		header := 2
		if version >= 5 {
			if off+2 >= end {
				return versions
			}
			unitType := info[off+2]
			header += 1 + 1 + offsetSize
			switch unitType {
			case unitTypeSkeleton, unitTypeSplitCompile:
				header += 8
			case unitTypeType, unitTypeSplitType:
				header += 8 + offsetSize
			}
		} else {
			header += offsetSize + 1
		}

		versions[dwarf.Offset(off+header)] = version
		off = end
	}

	return versions
}
