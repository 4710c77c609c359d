// Package wasm decodes the binary WebAssembly module format into an
// in-memory representation that preserves the byte offset of every
// instruction, since offsets are the join key used to resolve DWARF debug
// information and to address mutation candidates.
package wasm

import "fmt"

// ValueType is one of the value types WebAssembly code operates on.
type ValueType byte

const (
	I32       ValueType = 0x7f
	I64       ValueType = 0x7e
	F32       ValueType = 0x7d
	F64       ValueType = 0x7c
	V128      ValueType = 0x7b
	FuncRef   ValueType = 0x70
	ExternRef ValueType = 0x6f
)

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	default:
		return fmt.Sprintf("valtype(%#x)", byte(t))
	}
}

// IsFloat reports whether t is f32 or f64.
func (t ValueType) IsFloat() bool { return t == F32 || t == F64 }

// IsInteger reports whether t is i32 or i64.
func (t ValueType) IsInteger() bool { return t == I32 || t == I64 }

// Limits bounds a table or memory, in units of pages (memory) or elements
// (table). Max is nil when the section omits an upper bound.
type Limits struct {
	Min uint32
	Max *uint32
}

// FunctionType is a function signature: a vector of parameter types mapped
// to a vector of result types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (ft FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", ft.Params, ft.Results)
}

// Equal reports whether ft and other have identical parameter and result
// signatures.
func (ft FunctionType) Equal(other FunctionType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i := range ft.Params {
		if ft.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range ft.Results {
		if ft.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// TableType describes a table's element type and size limits.
type TableType struct {
	ElemType ValueType
	Limits   Limits
}

// MemoryType describes a memory's size limits, in 64KiB pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable's value type and mutability.
type GlobalType struct {
	ValType   ValueType
	IsMutable bool
}

// ImportKind identifies what an import binds to.
type ImportKind byte

const (
	ImportFunc ImportKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

// Import is an entry of the import section.
type Import struct {
	Module string
	Name   string
	Kind   ImportKind

	// Exactly one of these is populated, selected by Kind.
	FuncTypeIndex uint32
	TableType     TableType
	MemoryType    MemoryType
	GlobalType    GlobalType
}

// ExportKind identifies what an export refers to.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export is an entry of the export section.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// GlobalDef is a module-defined (non-imported) global.
type GlobalDef struct {
	Type GlobalType
	Init []byte // constant init expression, raw bytes including trailing `end`
}

// ElementSegment is an entry of the element section.
type ElementSegment struct {
	TableIndex uint32
	Offset     []byte // const init expr, active segments only (offset-based) are supported
	FuncIndexes []uint32
	Active     bool
}

// DataSegment is an entry of the data section.
type DataSegment struct {
	MemoryIndex uint32
	Offset      []byte
	Init        []byte
	Active      bool
}

// Local is a run of locals of the same type declared by a function body.
type Local struct {
	Count uint32
	Type  ValueType
}

// Function is a module-defined (non-imported) function. Code holds the raw
// instruction bytes of the body exactly as they appear in the code section,
// NOT including the trailing `end` opcode's semantic closing (the byte is
// kept so offsets inside Code line up with the section's own byte
// addressing) — see Decode.
type Function struct {
	TypeIndex uint32
	Locals    []Local
	Code      []byte
	// CodeSectionOffset is the byte offset of Code[0] from the start of the
	// code section's payload (just after its id and size), which is the
	// address space a Wasm DWARF line program uses; AbsoluteOffset adds an
	// instruction's Offset to it.
	CodeSectionOffset uint64
	Name              string // from the "name" custom section, if present
}

// NumLocals returns the number of local variable slots a function declares
// (not counting parameters).
func (f *Function) NumLocals() int {
	n := 0
	for _, l := range f.Locals {
		n += int(l.Count)
	}
	return n
}

// CustomSection is a raw, unparsed custom section.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is the fully parsed representation of a WebAssembly binary.
type Module struct {
	Types    []FunctionType
	Imports  []Import
	Funcs    []Function
	Tables   []TableType
	Memories []MemoryType
	Globals  []GlobalDef
	Exports  []Export
	Start    *uint32
	Elements []ElementSegment
	Data     []DataSegment
	Customs  []CustomSection

	// ImportedFuncCount caches how many entries of the eventual function
	// index space are imports, so that Funcs[i] corresponds to function
	// index ImportedFuncCount+i.
	ImportedFuncCount uint32
}

// FuncType returns the signature of the function at the given module-wide
// function index, accounting for imported functions occupying the low
// indices.
func (m *Module) FuncType(funcIndex uint32) (FunctionType, bool) {
	if funcIndex < m.ImportedFuncCount {
		var cur uint32
		for _, imp := range m.Imports {
			if imp.Kind != ImportFunc {
				continue
			}
			if cur == funcIndex {
				if int(imp.FuncTypeIndex) >= len(m.Types) {
					return FunctionType{}, false
				}
				return m.Types[imp.FuncTypeIndex], true
			}
			cur++
		}
		return FunctionType{}, false
	}
	i := funcIndex - m.ImportedFuncCount
	if int(i) >= len(m.Funcs) {
		return FunctionType{}, false
	}
	if int(m.Funcs[i].TypeIndex) >= len(m.Types) {
		return FunctionType{}, false
	}
	return m.Types[m.Funcs[i].TypeIndex], true
}

// ImportedFuncName returns the module!name pair for an imported function
// index, or ok=false if funcIndex does not name an import.
func (m *Module) ImportedFuncName(funcIndex uint32) (module, name string, ok bool) {
	if funcIndex >= m.ImportedFuncCount {
		return "", "", false
	}
	var cur uint32
	for _, imp := range m.Imports {
		if imp.Kind != ImportFunc {
			continue
		}
		if cur == funcIndex {
			return imp.Module, imp.Name, true
		}
		cur++
	}
	return "", "", false
}

// DefinedFuncName returns the name of a module-defined function, preferring
// the "name" custom section and falling back to a synthetic label.
func (m *Module) DefinedFuncName(funcIndex uint32) string {
	if funcIndex < m.ImportedFuncCount {
		if mod, name, ok := m.ImportedFuncName(funcIndex); ok {
			return mod + "." + name
		}
		return fmt.Sprintf("func[%d]", funcIndex)
	}
	i := funcIndex - m.ImportedFuncCount
	if int(i) >= len(m.Funcs) {
		return fmt.Sprintf("func[%d]", funcIndex)
	}
	if m.Funcs[i].Name != "" {
		return m.Funcs[i].Name
	}
	return fmt.Sprintf("func[%d]", funcIndex)
}

// Custom looks up a custom section by name.
func (m *Module) Custom(name string) ([]byte, bool) {
	for _, c := range m.Customs {
		if c.Name == name {
			return c.Data, true
		}
	}
	return nil, false
}
