// Package dwarfinfo resolves WebAssembly code offsets to source locations
// using the DWARF debug information clang/wasi-sdk emits into custom
// sections of the compiled module.
package dwarfinfo

import (
	"debug/dwarf"
	"errors"
	"sort"

	"wasmut.dev/pkg/wasmut/internal/wasm"
)

// ErrMissingDebugInfo is returned by Load when a module carries no
// ".debug_info" custom section at all.
var ErrMissingDebugInfo = errors.New("dwarfinfo: module has no debug info")

// Location is a resolved source position. Ok is false when the offset
// fell inside code but no DWARF row covers it (common for runtime
// startup glue such as `_start`).
type Location struct {
	File     string
	Line     int
	Column   int
	Function string
	Ok       bool
}

type lineRow struct {
	address     uint64
	file        string
	line        int
	column      int
	endSequence bool
}

type funcRange struct {
	low, high uint64
	name      string
}

// Resolver answers offset -> Location queries for one module.
type Resolver struct {
	rows      []lineRow
	funcs     []funcRange // subprogram ranges, may be queried for the enclosing function
	inlines   []funcRange // inlined subroutine ranges, in DWARF tree order (an enclosing range before the ranges nested in it)
}

// optionalSections are supplementary DWARF sections used by some DWARF5
// producers; missing ones are fine, AddSection errors on them are ignored.
var optionalSections = []string{
	"addr", "str_offsets", "line_str", "rnglists", "loclists", "cu_index", "tu_index",
}

// Load builds a Resolver from a parsed module's custom debug sections.
// Returns ErrMissingDebugInfo if the module was not compiled with -g.
func Load(m *wasm.Module) (*Resolver, error) {
	info, ok := m.Custom(".debug_info")
	if !ok {
		return nil, ErrMissingDebugInfo
	}
	section := func(name string) []byte {
		b, _ := m.Custom(".debug_" + name)
		return b
	}

	data, err := dwarf.New(
		section("abbrev"),
		section("aranges"),
		section("frame"),
		info,
		section("line"),
		section("pubnames"),
		section("ranges"),
		section("str"),
	)
	if err != nil {
		return nil, err
	}
	for _, name := range optionalSections {
		if b := section(name); b != nil {
			_ = data.AddSection(".debug_"+name, b)
		}
	}

	r := &Resolver{}
	if err := r.index(data); err != nil {
		return nil, err
	}
	sort.Slice(r.rows, func(i, j int) bool { return r.rows[i].address < r.rows[j].address })
	return r, nil
}

func (r *Resolver) index(data *dwarf.Data) error {
	reader := data.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}
		switch entry.Tag {
		case dwarf.TagCompileUnit:
			if err := r.indexLineProgram(data, entry); err != nil {
				return err
			}
			r.indexSubtree(reader, entry)
		}
	}
	return nil
}

func (r *Resolver) indexLineProgram(data *dwarf.Data, cu *dwarf.Entry) error {
	lr, err := data.LineReader(cu)
	if err != nil || lr == nil {
		return nil //nolint: nilerr — a CU without line info is not fatal
	}
	var entry dwarf.LineEntry
	for {
		err := lr.Next(&entry)
		if err != nil {
			break
		}
		name := ""
		if entry.File != nil {
			name = entry.File.Name
		}
		r.rows = append(r.rows, lineRow{
			address:     entry.Address,
			file:        name,
			line:        entry.Line,
			column:      entry.Column,
			endSequence: entry.EndSequence,
		})
	}
	return nil
}

// indexSubtree walks the DWARF tree rooted at a compile unit collecting
// subprogram and inlined-subroutine address ranges. reader is positioned
// just after cu when called and is left positioned after the CU's subtree.
func (r *Resolver) indexSubtree(reader *dwarf.Reader, cu *dwarf.Entry) {
	if !cu.Children {
		return
	}
	depth := 1
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			return
		}
		if entry.Tag == 0 {
			depth--
			if depth == 0 {
				return
			}
			continue
		}
		switch entry.Tag {
		case dwarf.TagSubprogram:
			if low, high, ok := entryRange(entry); ok {
				r.funcs = append(r.funcs, funcRange{low: low, high: high, name: attrString(entry, dwarf.AttrName)})
			}
		case dwarf.TagInlinedSubroutine:
			if low, high, ok := entryRange(entry); ok {
				r.inlines = append(r.inlines, funcRange{low: low, high: high, name: attrString(entry, dwarf.AttrName)})
			}
		}
		if entry.Children {
			depth++
		}
	}
}

func entryRange(entry *dwarf.Entry) (low, high uint64, ok bool) {
	lowField := entry.AttrField(dwarf.AttrLowpc)
	highField := entry.AttrField(dwarf.AttrHighpc)
	if lowField == nil || highField == nil {
		return 0, 0, false
	}
	lo, ok := lowField.Val.(uint64)
	if !ok {
		return 0, 0, false
	}
	switch v := highField.Val.(type) {
	case uint64:
		// DWARF4+ producers commonly encode highpc as an offset from
		// lowpc rather than an absolute address; offset-form values are
		// always class "constant" in the abbrev, but debug/dwarf exposes
		// both as uint64, so treat a value smaller than lo as an offset.
		if v < lo {
			return lo, lo + v, true
		}
		return lo, v, true
	case int64:
		return lo, lo + uint64(v), true
	default:
		return 0, 0, false
	}
}

func attrString(entry *dwarf.Entry, attr dwarf.Attr) string {
	if v, ok := entry.Val(attr).(string); ok {
		return v
	}
	return ""
}

// Lookup resolves a code offset to its innermost source location, for
// reporting. Inlined frames are preferred over their enclosing function
// when the offset falls within an inlined range.
func (r *Resolver) Lookup(offset uint64) Location {
	loc := Location{}
	if row, ok := r.rowFor(offset); ok {
		loc.File = row.file
		loc.Line = row.line
		loc.Column = row.column
		loc.Ok = true
	}
	loc.Function = r.functionNameFor(offset)
	return loc
}

// FrameNames returns every function name whose range (subprogram or
// inlined) contains offset, innermost first — used by filter policy
// evaluation, which treats a candidate as belonging to every enclosing
// function when inlining is present, not just the innermost one.
func (r *Resolver) FrameNames(offset uint64) []string {
	var names []string
	for i := len(r.inlines) - 1; i >= 0; i-- {
		f := r.inlines[i]
		if offset >= f.low && offset < f.high && f.name != "" {
			names = append(names, f.name)
		}
	}
	for _, f := range r.funcs {
		if offset >= f.low && offset < f.high && f.name != "" {
			names = append(names, f.name)
		}
	}
	return names
}

func (r *Resolver) functionNameFor(offset uint64) string {
	names := r.FrameNames(offset)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (r *Resolver) rowFor(offset uint64) (lineRow, bool) {
	// r.rows is sorted ascending by address; find the last row whose
	// address is <= offset and which is not an end-of-sequence marker.
	idx := sort.Search(len(r.rows), func(i int) bool { return r.rows[i].address > offset })
	if idx == 0 {
		return lineRow{}, false
	}
	row := r.rows[idx-1]
	if row.endSequence {
		return lineRow{}, false
	}
	return row, true
}
