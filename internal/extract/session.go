// Package extract turns the DIE tree of a binary into flat record sets:
// compilation units, functions, variables, types, line rows and the
// relations between them.
//
// A Session is not safe for concurrent use. Every extractor performs a fresh
// scan of the units it visits.
package extract

import (
	"debug/dwarf"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// ErrClosed is returned by extractors when the session is not open.
var ErrClosed = errors.New("debug session is not open")

// Session owns a Provider and exposes the extractors over it.
type Session struct {
	provider dwarfinfo.Provider
	resolver *Resolver
	path     string
	lastErr  error
	base     zerolog.Logger
	logger   zerolog.Logger
}

// NewSession creates a closed session.
func NewSession(logger zerolog.Logger) *Session {
	return &Session{
		base:   logger,
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// Open opens the binary at path, closing any binary opened before. On
// failure the session stays closed and LastError reports the cause.
func (s *Session) Open(path string) error {
	s.Close()

	p, err := dwarfinfo.Open(path, s.base)
	if err != nil {
		s.lastErr = fmt.Errorf("failed to open %s: %w", path, err)
		return s.lastErr
	}

	s.Attach(p, path)
	return nil
}

// Attach makes the session use an already opened provider.
func (s *Session) Attach(p dwarfinfo.Provider, path string) {
	s.Close()
	s.provider = p
	s.resolver = NewResolver(p)
	s.path = path
	s.lastErr = nil
}

// Close releases the provider. Closing a closed session is a no-op.
func (s *Session) Close() {
	if s.provider == nil {
		return
	}
	if err := s.provider.Close(); err != nil {
		s.lastErr = fmt.Errorf("failed to close %s: %w", s.path, err)
		s.logger.Debug().Err(err).Str("binary", s.path).Msg("Failed to close debug info")
	}
	s.provider = nil
	s.resolver = nil
	s.path = ""
}

// IsOpen reports whether a binary is open.
func (s *Session) IsOpen() bool {
	return s.provider != nil
}

// Path returns the path of the open binary, or "".
func (s *Session) Path() string {
	return s.path
}

// LastError returns the most recent open or close failure.
func (s *Session) LastError() error {
	return s.lastErr
}

// Resolver returns the attribute resolver of the open session, or nil.
func (s *Session) Resolver() *Resolver {
	return s.resolver
}

// unitVisitFunc is called with each unit selected by forEachUnit.
type unitVisitFunc func(u dwarfinfo.Unit, root *dwarf.Entry)

// forEachUnit calls fn for every unit, or only for the unit rooted at
// filter when filter is non-zero. Units whose root cannot be read are
// skipped.
func (s *Session) forEachUnit(filter uint64, fn unitVisitFunc) error {
	if s.provider == nil {
		return ErrClosed
	}

	units, err := s.provider.Units()
	if err != nil {
		s.logger.Debug().Err(err).Int("decoded", len(units)).Msg("Unit list truncated by decode error")
	}

	for _, u := range units {
		if filter != 0 && uint64(u.Offset) != filter {
			continue
		}
		root, err := s.provider.Root(u)
		if err != nil {
			s.logger.Debug().Err(err).Uint64("unit", uint64(u.Offset)).Msg("Skipping unreadable compilation unit")
			continue
		}
		fn(u, root)
	}
	return nil
}

// walkUnits walks every selected unit with an ancestor path.
func (s *Session) walkUnits(filter uint64, visit func(u dwarfinfo.Unit, e *dwarf.Entry, depth int, path *Path)) error {
	return s.forEachUnit(filter, func(u dwarfinfo.Unit, root *dwarf.Entry) {
		WalkPath(s.provider, root, 0, func(e *dwarf.Entry, depth int, path *Path) {
			visit(u, e, depth, path)
		})
	})
}

// children calls fn for each direct child of the entry at off.
func (s *Session) children(off uint64, fn func(e *dwarf.Entry)) error {
	if s.provider == nil {
		return ErrClosed
	}
	parent, err := s.provider.EntryAt(dwarf.Offset(off))
	if err != nil {
		return fmt.Errorf("failed to read entry 0x%x: %w", off, err)
	}
	for c := s.provider.FirstChild(parent); c != nil; c = s.provider.NextSibling(c) {
		fn(c)
	}
	return nil
}

// byteOrder returns the target byte order when the provider knows it.
func (s *Session) byteOrder() binary.ByteOrder {
	if o, ok := s.provider.(interface{ ByteOrder() binary.ByteOrder }); ok {
		return o.ByteOrder()
	}
	return binary.LittleEndian
}
