package dwarfinfo

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/maypok86/otter"
	"github.com/rs/zerolog"
)

// defaultEntryCacheSize bounds the number of entries kept for reference lookups.
const defaultEntryCacheSize = 16384

// Object formats recognised by Open.
const (
	FormatELF      = "elf"
	FormatMachO    = "macho"
	FormatMachOFat = "macho-fat"
	FormatPE       = "pe"
)

var (
	magicELF = []byte{0x7f, 'E', 'L', 'F'}
	magicPE  = []byte{'M', 'Z'}
)

// object is the subset of an opened object file needed to reach DWARF.
type object struct {
	format string
	data   *dwarf.Data
	info   []byte
	order  binary.ByteOrder
	closer io.Closer
}

// Open opens the binary at path and prepares its DWARF data for traversal.
// Errors wrap ErrNotFound, ErrUnknownFormat or ErrNoDebugInfo.
func Open(path string, logger zerolog.Logger) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	magic, err := readMagic(path)
	if err != nil {
		return nil, err
	}

	var obj *object
	switch {
	case bytes.HasPrefix(magic, magicELF):
		obj, err = openELF(path)
	case isMachO(magic):
		obj, err = openMachO(path)
	case isFatMachO(magic):
		obj, err = openFatMachO(path)
	case bytes.HasPrefix(magic, magicPE):
		obj, err = openPE(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}

	entries, err := otter.MustBuilder[dwarf.Offset, *dwarf.Entry](defaultEntryCacheSize).Build()
	if err != nil {
		_ = obj.closer.Close()
		return nil, fmt.Errorf("failed to create entry cache: %w", err)
	}

	f := &File{
		path:     path,
		format:   obj.format,
		data:     obj.data,
		order:    obj.order,
		closer:   obj.closer,
		versions: unitVersions(obj.info, obj.order),
		entries:  entries,
		logger:   logger.With().Str("component", "dwarfinfo").Logger(),
	}

	f.logger.Debug().
		Str("binary", path).
		Str("format", obj.format).
		Int("headers", len(f.versions)).
		Msg("Opened binary with DWARF debug info")

	return f, nil
}

func readMagic(path string) ([]byte, error) {
	//nolint:gosec // G304: path is the binary the user asked to inspect.
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	magic := make([]byte, 4)
	n, err := io.ReadFull(fh, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return magic[:n], nil
}

func isMachO(magic []byte) bool {
	if len(magic) < 4 {
		return false
	}
	switch binary.BigEndian.Uint32(magic) {
	case macho.Magic32, macho.Magic64, 0xcefaedfe, 0xcffaedfe:
		return true
	}
	return false
}

func isFatMachO(magic []byte) bool {
	return len(magic) >= 4 && binary.BigEndian.Uint32(magic) == macho.MagicFat
}

func openELF(path string) (*object, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownFormat, path, err)
	}

	data, err := f.DWARF()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDebugInfo, path, err)
	}

	var info []byte
	if s := f.Section(".debug_info"); s != nil {
		info, _ = s.Data()
	}

	return &object{format: FormatELF, data: data, info: info, order: f.ByteOrder, closer: f}, nil
}

func openMachO(path string) (*object, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownFormat, path, err)
	}

	data, err := f.DWARF()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDebugInfo, path, err)
	}

	var info []byte
	if s := f.Section("__debug_info"); s != nil {
		info, _ = s.Data()
	}

	return &object{format: FormatMachO, data: data, info: info, order: f.ByteOrder, closer: f}, nil
}

// openFatMachO uses the first architecture slice that carries DWARF.
func openFatMachO(path string) (*object, error) {
	ff, err := macho.OpenFat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownFormat, path, err)
	}

	for _, arch := range ff.Arches {
		data, err := arch.DWARF()
		if err != nil {
			continue
		}
		var info []byte
		if s := arch.Section("__debug_info"); s != nil {
			info, _ = s.Data()
		}
		return &object{format: FormatMachOFat, data: data, info: info, order: arch.ByteOrder, closer: ff}, nil
	}

	_ = ff.Close()
	return nil, fmt.Errorf("%w: %s: no architecture carries DWARF", ErrNoDebugInfo, path)
}

func openPE(path string) (*object, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownFormat, path, err)
	}

	data, err := f.DWARF()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDebugInfo, path, err)
	}

	var info []byte
	if s := f.Section(".debug_info"); s != nil {
		info, _ = s.Data()
	}

	return &object{format: FormatPE, data: data, info: info, order: binary.LittleEndian, closer: f}, nil
}
