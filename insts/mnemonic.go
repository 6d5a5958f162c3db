package insts

// MnemonicUnknown is reported for opcodes without a table entry.
const MnemonicUnknown = "UNKNOWN"

// MnemonicPrefix is the name carried by prefix entries.
const MnemonicPrefix = "PREFIX"

// MnemonicKind tags the variant held by a MnemonicSpec.
type MnemonicKind uint8

// Mnemonic spec variants.
const (
	KindNone       MnemonicKind = iota // no table entry
	KindFixed                          // a single name
	KindBySize                         // four names indexed by operand width
	KindByRegField                     // eight names indexed by the ModRM reg field
	KindPrefix                         // a prefix byte, not an instruction
)

// MnemonicSpec describes how an opcode's mnemonic is resolved.
type MnemonicSpec struct {
	kind  MnemonicKind
	names [8]string
}

// Fixed returns a spec with a single name.
func Fixed(name string) MnemonicSpec {
	return MnemonicSpec{kind: KindFixed, names: [8]string{name}}
}

// BySize returns a spec selected by the resolved register width. Empty names
// mark widths the opcode has no variant for.
func BySize(w8, w16, w32, w64 string) MnemonicSpec {
	return MnemonicSpec{kind: KindBySize, names: [8]string{w8, w16, w32, w64}}
}

// ByRegField returns a spec selected by the ModRM reg field.
func ByRegField(names [8]string) MnemonicSpec {
	return MnemonicSpec{kind: KindByRegField, names: names}
}

// Prefix returns the spec for a prefix byte.
func Prefix() MnemonicSpec {
	return MnemonicSpec{kind: KindPrefix, names: [8]string{MnemonicPrefix}}
}

// Kind returns the variant tag.
func (m MnemonicSpec) Kind() MnemonicKind {
	return m.kind
}

// Name returns the mnemonic before any size or reg-field resolution.
// BySize specs start from their 32-bit name.
func (m MnemonicSpec) Name() string {
	switch m.kind {
	case KindNone:
		return MnemonicUnknown
	case KindBySize:
		for _, w := range [...]Width{Width32, Width16, Width64, Width8} {
			if m.names[w] != "" {
				return m.names[w]
			}
		}
		return MnemonicUnknown
	}
	if m.names[0] == "" {
		return MnemonicUnknown
	}
	return m.names[0]
}

// ForWidth returns the size variant for w, or "" if there is none.
func (m MnemonicSpec) ForWidth(w Width) string {
	if m.kind != KindBySize {
		return ""
	}
	return m.names[w&3]
}

// ForReg returns the name selected by reg field value reg.
func (m MnemonicSpec) ForReg(reg int) string {
	if m.kind != KindByRegField {
		return ""
	}
	if name := m.names[reg&7]; name != "" {
		return name
	}
	return MnemonicUnknown
}
