package graph

import "fmt"

// Node labels as stored in the graph.
const (
	LabelBinary   = "Binary"
	LabelFunction = "Function"
	LabelString   = "String"
	LabelLibrary  = "Library"
)

// Binary is an analyzed executable, keyed by its content hash.
type Binary struct {
	// Hash is the SHA-256 of the file content. Required.
	Hash string `json:"hash"`

	// Filename is the base name of the analyzed file. Required.
	Filename string `json:"filename"`

	FilePath string       `json:"file_path"`
	FileSize uint64       `json:"file_size"`
	Format   BinaryFormat `json:"format"`
	Arch     string       `json:"arch"`
}

// Validate checks that the binary carries its identifying fields.
func (b Binary) Validate() error {
	if b.Hash == "" {
		return fmt.Errorf("binary %w: hash", ErrMissingField)
	}
	if b.Filename == "" {
		return fmt.Errorf("binary %w: filename", ErrMissingField)
	}
	return nil
}

// Properties returns the values written to the Binary node.
func (b Binary) Properties() map[string]any {
	return map[string]any{
		"hash":      b.Hash,
		"filename":  b.Filename,
		"file_path": b.FilePath,
		"file_size": int64(b.FileSize),
		"format":    b.Format.String(),
		"arch":      b.Arch,
	}
}

// Function is a callable unit. Internal, exported and imported functions
// share the label and are told apart by Type.
type Function struct {
	// UID is the derived key; see package graph/id.
	UID string `json:"uid"`

	Name string `json:"name"`

	// Address is the canonical address, or empty when unknown.
	Address string `json:"address,omitempty"`

	Type FunctionType `json:"type"`

	// Size is the function size in bytes when the analyzer reported one.
	Size *uint64 `json:"size,omitempty"`
}

// Validate checks that the function has a key and a type.
func (f Function) Validate() error {
	if f.UID == "" {
		return fmt.Errorf("function %w: uid", ErrMissingField)
	}
	if f.Type == "" {
		return fmt.Errorf("function %w: type", ErrMissingField)
	}
	return nil
}

// Properties returns the values written to the Function node. A missing
// size is stored as -1 and a missing address as the empty string.
func (f Function) Properties() map[string]any {
	size := int64(-1)
	if f.Size != nil {
		size = int64(*f.Size)
	}
	return map[string]any{
		"uid":     f.UID,
		"name":    f.Name,
		"address": f.Address,
		"type":    f.Type.String(),
		"size":    size,
	}
}

// StringLiteral is a string constant recovered from a binary.
type StringLiteral struct {
	UID   string `json:"uid"`
	Value string `json:"value"`

	// Address is where the literal was found, or empty.
	Address string `json:"address,omitempty"`
}

// Properties returns the values written to the String node.
func (s StringLiteral) Properties() map[string]any {
	return map[string]any{
		"uid":     s.UID,
		"value":   s.Value,
		"address": s.Address,
	}
}

// Library is a shared library referenced by imports. Names are stored
// lowercased so the same DLL spelled differently collapses to one node.
type Library struct {
	Name string `json:"name"`
}

// Properties returns the values written to the Library node.
func (l Library) Properties() map[string]any {
	return map[string]any{"name": l.Name}
}

// Import is a symbol a binary pulls from a Library. It enters the graph as
// a Function of type FunctionImport.
type Import struct {
	Name    string  `json:"name"`
	Library string  `json:"library"`
	Address string  `json:"address,omitempty"`
	Ordinal *uint32 `json:"ordinal,omitempty"`
}

// Export is a symbol a binary makes available. It enters the graph as a
// Function of type FunctionExport.
type Export struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Ordinal *uint32 `json:"ordinal,omitempty"`
}
