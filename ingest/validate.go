package ingest

import "fmt"

// ValidationResult reports the shape problems of a document. Errors make a
// document unimportable; warnings point at fields that will be defaulted.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a document without importing it.
func Validate(data []byte) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	p, err := decodePayload(data)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	if !p.present(SectionBinaryInfo) {
		res.Errors = append(res.Errors, "Missing required field: binary_info")
	} else if info, ok := decodeRecord(p[SectionBinaryInfo]); !ok {
		res.Errors = append(res.Errors, "binary_info must be an object")
	} else {
		validateBinaryInfo(info, &res)
	}

	for _, section := range []string{SectionFunctions, SectionStrings, SectionImports, SectionExports, SectionCalls} {
		items, err := p.array(section)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		if section == SectionFunctions && len(items) == 0 {
			res.Warnings = append(res.Warnings, "No functions found")
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func validateBinaryInfo(info record, res *ValidationResult) {
	if _, ok := info.str("name", "filename"); !ok {
		res.Errors = append(res.Errors, "Missing field in binary_info: name")
	}
	if hashes, ok := info.object("hashes"); !ok {
		res.Errors = append(res.Errors, "Missing field in binary_info: hashes")
	} else if _, ok := hashes.str("sha256", "SHA256"); !ok {
		res.Errors = append(res.Errors, "Missing SHA256 hash in binary_info.hashes")
	}
	for _, field := range []string{"file_path", "file_size", "file_type"} {
		if !info.has(field) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Missing field in binary_info: %s", field))
		}
	}
}
