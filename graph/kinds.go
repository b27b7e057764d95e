package graph

import "strings"

// BinaryFormat is the executable container format of a Binary.
type BinaryFormat string

const (
	FormatPE    BinaryFormat = "PE"
	FormatELF   BinaryFormat = "Elf"
	FormatMachO BinaryFormat = "MachO"
)

// DefaultFormat is assumed when a file type description names no known format.
const DefaultFormat = FormatPE

// ClassifyFormat maps a free-form file type description to a BinaryFormat.
// The description is matched case-insensitively by substring, checking PE
// first, then ELF, then Mach-O. Anything else yields DefaultFormat.
func ClassifyFormat(description string) BinaryFormat {
	upper := strings.ToUpper(description)
	switch {
	case strings.Contains(upper, "PE"):
		return FormatPE
	case strings.Contains(upper, "ELF"):
		return FormatELF
	case strings.Contains(upper, "MACH"):
		return FormatMachO
	}
	return DefaultFormat
}

// String returns the format name.
func (f BinaryFormat) String() string { return string(f) }

// FunctionType distinguishes how a Function entered the graph.
type FunctionType string

const (
	FunctionInternal FunctionType = "Internal"
	FunctionImport   FunctionType = "Import"
	FunctionExport   FunctionType = "Export"
	FunctionThunk    FunctionType = "Thunk"
)

// ParseFunctionType maps a stored or user-supplied type name to a
// FunctionType, case-insensitively. Unrecognized names yield FunctionInternal.
func ParseFunctionType(s string) FunctionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "import":
		return FunctionImport
	case "export":
		return FunctionExport
	case "thunk":
		return FunctionThunk
	}
	return FunctionInternal
}

// String returns the type name.
func (t FunctionType) String() string { return string(t) }

// CallType classifies a CALLS edge.
type CallType string

const (
	CallDirect   CallType = "Direct"
	CallIndirect CallType = "Indirect"
	CallVirtual  CallType = "Virtual"
	CallTail     CallType = "Tail"
)

// DefaultCallType is assumed when a call record has no or an unknown type.
const DefaultCallType = CallDirect

// ParseCallType maps a call type name to a CallType, case-insensitively.
// Empty or unrecognized names yield DefaultCallType.
func ParseCallType(s string) CallType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return CallDirect
	case "indirect":
		return CallIndirect
	case "virtual":
		return CallVirtual
	case "tail":
		return CallTail
	}
	return DefaultCallType
}

// String returns the call type name.
func (c CallType) String() string { return string(c) }
