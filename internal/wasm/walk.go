package wasm

// WalkFunc is called once per decoded instruction during a module walk.
// funcIndex is the module-wide function index (imports occupy the low
// indices, so this always points at a module-defined function here).
type WalkFunc func(funcIndex uint32, fn *Function, ins Instruction) error

// Walk decodes every module-defined function body in turn and invokes visit
// for each instruction, in discovery order (function index, then byte
// offset within the function) — the order discovery and candidate
// enumeration depend on for deterministic, reproducible IDs.
func (m *Module) Walk(visit WalkFunc) error {
	for i := range m.Funcs {
		fn := &m.Funcs[i]
		instrs, err := fn.Instructions()
		if err != nil {
			return err
		}
		funcIndex := m.ImportedFuncCount + uint32(i)
		for _, ins := range instrs {
			if err := visit(funcIndex, fn, ins); err != nil {
				return err
			}
		}
	}
	return nil
}
