package wasm

// applyNameSection parses the "name" custom section, if present, and fills
// in Function.Name for module-defined functions. Malformed name sections
// are ignored rather than treated as fatal, matching tooling convention:
// debug aids must never block loading a module that is otherwise valid.
func applyNameSection(m *Module) {
	data, ok := m.Custom("name")
	if !ok {
		return
	}
	c := &cursor{data: data}
	for c.pos < len(data) {
		subID, err := c.ReadByte()
		if err != nil {
			return
		}
		size, err := c.uleb128()
		if err != nil {
			return
		}
		subStart := c.pos
		subEnd := subStart + int(size)
		if subEnd > len(data) {
			return
		}
		if subID == 1 { // function names
			applyFunctionNames(m, data[subStart:subEnd])
		}
		c.pos = subEnd
	}
}

func applyFunctionNames(m *Module, sub []byte) {
	c := &cursor{data: sub}
	count, err := c.uleb128()
	if err != nil {
		return
	}
	for i := uint64(0); i < count; i++ {
		idx, err := c.u32Index()
		if err != nil {
			return
		}
		name, err := c.name()
		if err != nil {
			return
		}
		if idx < m.ImportedFuncCount {
			continue
		}
		fi := idx - m.ImportedFuncCount
		if int(fi) < len(m.Funcs) {
			m.Funcs[fi].Name = name
		}
	}
}
