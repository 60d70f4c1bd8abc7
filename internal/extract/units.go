package extract

import (
	"debug/dwarf"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// CompilationUnits returns one record per compilation unit.
func (s *Session) CompilationUnits() ([]CompilationUnit, error) {
	var out []CompilationUnit
	err := s.forEachUnit(0, func(u dwarfinfo.Unit, root *dwarf.Entry) {
		r := s.resolver
		low, high := r.ScopeRange(root)
		out = append(out, CompilationUnit{
			Offset:      uint64(root.Offset),
			Name:        r.String(root, dwarf.AttrName),
			CompDir:     r.String(root, dwarf.AttrCompDir),
			Producer:    r.String(root, dwarf.AttrProducer),
			Language:    r.Signed(root, dwarf.AttrLanguage, 0),
			LowPC:       low,
			HighPC:      high,
			Version:     int64(u.Version),
			AddressSize: int64(u.AddrSize),
		})
	})
	return out, err
}

// Lines returns the decoded line program of every unit, or of the unit
// rooted at cu when cu is non-zero. Units whose line program cannot be
// decoded contribute no rows.
func (s *Session) Lines(cu uint64) ([]Line, error) {
	var out []Line
	err := s.forEachUnit(cu, func(u dwarfinfo.Unit, root *dwarf.Entry) {
		rows, err := s.provider.LineRows(root)
		if err != nil {
			s.logger.Debug().Err(err).Uint64("unit", uint64(u.Offset)).Msg("Skipping undecodable line program")
			return
		}
		for _, row := range rows {
			out = append(out, Line{
				UnitOffset:  uint64(root.Offset),
				Address:     row.Address,
				File:        row.File,
				Line:        int64(row.Line),
				Column:      int64(row.Column),
				IsStmt:      row.IsStmt,
				BasicBlock:  row.BasicBlock,
				EndSequence: row.EndSequence,
			})
		}
	})
	return out, err
}
