package ingest

import (
	"context"
	"errors"

	"github.com/zero-day-ai/binxgraph/address"
	"github.com/zero-day-ai/binxgraph/graph"
	"github.com/zero-day-ai/binxgraph/graph/id"
)

const defaultArch = "unknown"

// importBinary persists the owning Binary. It returns false when the
// document cannot be attributed to a binary.
func (s *Session) importBinary(ctx context.Context, p payload) bool {
	b, err := parseBinary(p)
	if err != nil {
		s.errorf("Failed to parse binary info: %v", err)
		return false
	}
	if err := s.sink.UpsertBinary(ctx, b); err != nil {
		s.errorf("Failed to create binary node: %v", err)
		return false
	}
	s.binary = b
	s.result.BinaryHash = b.Hash
	s.result.Statistics.Binaries = 1
	s.logger.Info("importing binary", "binary", b.Filename, "hash", b.Hash, "format", b.Format)
	return true
}

func parseBinary(p payload) (graph.Binary, error) {
	if !p.present(SectionBinaryInfo) {
		return graph.Binary{}, errors.New("Missing binary_info")
	}
	info, ok := decodeRecord(p[SectionBinaryInfo])
	if !ok {
		return graph.Binary{}, errors.New("binary_info must be an object")
	}

	hashes, ok := info.object("hashes")
	if !ok {
		return graph.Binary{}, errors.New("Missing hashes")
	}
	hash, ok := hashes.str("sha256", "SHA256")
	if !ok {
		return graph.Binary{}, errors.New("Missing SHA256 hash")
	}
	name, ok := info.str("name", "filename")
	if !ok {
		return graph.Binary{}, errors.New("Missing filename")
	}

	b := graph.Binary{
		Hash:     hash,
		Filename: name,
		Format:   graph.DefaultFormat,
		Arch:     defaultArch,
	}
	b.FilePath, _ = info.str("file_path")
	b.FileSize, _ = info.uint("file_size")
	if ft, ok := info.object("file_type"); ok {
		desc, _ := ft.str("type")
		b.Format = graph.ClassifyFormat(desc)
		if arch, ok := ft.str("architecture"); ok {
			b.Arch = arch
		}
	}
	return b, nil
}

// canonical normalizes raw, reporting whether it parsed.
func canonical(raw string) (string, bool) {
	n, err := address.Normalize(raw)
	return n, err == nil
}

type parsedFunction struct {
	fn   graph.Function
	raws []string
}

// importFunctions persists the functions section in chunks, registers
// each persisted function's addresses and links it to the binary.
func (s *Session) importFunctions(ctx context.Context, p payload) {
	items, err := p.array(SectionFunctions)
	if err != nil {
		s.errorf("Failed to parse functions: %v", err)
		return
	}

	var order []string
	parsed := make(map[string]*parsedFunction)
	for i, raw := range items {
		rec, ok := decodeRecord(raw)
		if !ok {
			s.errorf("Failed to parse functions: record %d is not an object", i)
			return
		}
		name, ok := rec.str("name")
		if !ok {
			name = "unknown"
		}
		rawAddr, _ := rec.addr("address")
		v, err := address.Parse(rawAddr)
		if err != nil {
			v = 0
		}
		fn := graph.Function{
			UID:     id.Function(s.binary.Hash, v),
			Name:    name,
			Address: address.Format(v),
			Type:    graph.FunctionInternal,
		}
		if size, ok := rec.uint("size"); ok {
			fn.Size = &size
		}

		pf, seen := parsed[fn.UID]
		if !seen {
			pf = &parsedFunction{}
			parsed[fn.UID] = pf
			order = append(order, fn.UID)
		}
		pf.fn = fn
		pf.raws = append(pf.raws, rawAddr)
	}

	for _, c := range s.chunks(len(order)) {
		batch := make([]graph.Function, 0, c[1]-c[0])
		for _, uid := range order[c[0]:c[1]] {
			batch = append(batch, parsed[uid].fn)
		}
		if err := s.sink.UpsertFunctions(ctx, batch); err != nil {
			s.errorf("Failed to import functions batch: %v", err)
			continue
		}
		s.result.Statistics.Functions += len(batch)
		s.markWritten(batch)

		for _, fn := range batch {
			s.functions[fn.UID] = fn
			s.register(fn.Address, fn.UID, true)
			for _, raw := range parsed[fn.UID].raws {
				s.register(raw, fn.UID, true)
			}
			if err := s.sink.Link(ctx, graph.Contains(s.binary.Hash, fn.UID)); err != nil {
				s.errorf("Failed to create CONTAINS relationship: %v", err)
			}
		}
	}
}

// importStrings persists the strings section deduplicated by key. Later
// records with the same key replace earlier ones.
func (s *Session) importStrings(ctx context.Context, p payload) {
	items, err := p.array(SectionStrings)
	if err != nil {
		s.errorf("Failed to parse strings: %v", err)
		return
	}

	var order []string
	unique := make(map[string]graph.StringLiteral)
	for _, raw := range items {
		var value, addr string
		if err := jsonString(raw, &value); err != nil {
			rec, ok := decodeRecord(raw)
			if !ok || !rec.has("value") {
				continue
			}
			if err := jsonString(rec["value"], &value); err != nil {
				continue
			}
			addr, _ = rec.addr("address")
		}

		value = id.NormalizeString(value)
		lit := graph.StringLiteral{
			UID:   id.String(s.binary.Hash, value),
			Value: value,
		}
		if addr != "" {
			lit.Address = address.NormalizeOr(addr, addr)
		}
		if _, seen := unique[lit.UID]; !seen {
			order = append(order, lit.UID)
		}
		unique[lit.UID] = lit
	}

	for _, c := range s.chunks(len(order)) {
		batch := make([]graph.StringLiteral, 0, c[1]-c[0])
		for _, uid := range order[c[0]:c[1]] {
			batch = append(batch, unique[uid])
		}
		if err := s.sink.UpsertStrings(ctx, batch); err != nil {
			s.errorf("Failed to import strings batch: %v", err)
			continue
		}
		s.result.Statistics.Strings += len(batch)
	}
}

type parsedImport struct {
	imp graph.Import
	fn  graph.Function
	// raw is the address as written, registered alongside the canonical one.
	raw string
}

// importImports persists libraries, the binary's IMPORTS edges and one
// Function per imported symbol linked to its library.
func (s *Session) importImports(ctx context.Context, p payload) {
	items, err := p.array(SectionImports)
	if err != nil {
		s.errorf("Failed to parse imports: %v", err)
		return
	}

	imports := make([]parsedImport, 0, len(items))
	for i, raw := range items {
		rec, ok := decodeRecord(raw)
		if !ok {
			s.errorf("Failed to parse imports: record %d is not an object", i)
			return
		}
		name, ok := rec.str("name")
		if !ok {
			s.errorf("Failed to parse imports: Import missing name")
			return
		}
		lib, ok := rec.str("library")
		if !ok {
			s.errorf("Failed to parse imports: Import missing library")
			return
		}
		pi := parsedImport{imp: graph.Import{Name: name, Library: id.Library(lib)}}
		if ord, ok := rec.uint("ordinal"); ok && ord <= 0xffffffff {
			o := uint32(ord)
			pi.imp.Ordinal = &o
		}

		pi.fn = graph.Function{Name: name, Type: graph.FunctionImport}
		rawAddr, _ := rec.addr("address")
		if v, err := address.Parse(rawAddr); err == nil {
			pi.raw = rawAddr
			pi.imp.Address = address.Format(v)
			pi.fn.Address = pi.imp.Address
			pi.fn.UID = id.ImportIn(s.binary.Hash, lib, name)
		} else {
			pi.fn.UID = id.Import(lib, name)
		}
		imports = append(imports, pi)
	}
	if len(imports) == 0 {
		return
	}

	var libs []graph.Library
	seen := make(map[string]bool)
	for _, pi := range imports {
		if !seen[pi.imp.Library] {
			seen[pi.imp.Library] = true
			libs = append(libs, graph.Library{Name: pi.imp.Library})
		}
	}
	if err := s.sink.UpsertLibraries(ctx, libs); err != nil {
		s.errorf("Failed to import libraries: %v", err)
		return
	}
	s.result.Statistics.Libraries += len(libs)

	for _, lib := range libs {
		if err := s.sink.Link(ctx, graph.Imports(s.binary.Hash, lib.Name)); err != nil {
			s.errorf("Failed to create IMPORTS relationship: %v", err)
		}
	}

	for _, c := range s.chunks(len(imports)) {
		group := imports[c[0]:c[1]]
		batch := uniqueFunctions(group)
		if err := s.sink.UpsertFunctions(ctx, batch); err != nil {
			s.errorf("Failed to import functions batch: %v", err)
			continue
		}
		s.result.Statistics.ImportedFunctions += len(batch)
		s.markWritten(batch)

		for _, pi := range group {
			if pi.fn.Address != "" {
				s.register(pi.fn.Address, pi.fn.UID, true)
				s.register(pi.raw, pi.fn.UID, true)
			}
		}
		for _, fn := range batch {
			lib := libraryOf(group, fn.UID)
			if err := s.sink.Link(ctx, graph.BelongsTo(fn.UID, lib)); err != nil {
				s.errorf("Failed to create BELONGS_TO relationship: %v", err)
			}
		}
	}
}

func uniqueFunctions(group []parsedImport) []graph.Function {
	idx := make(map[string]int)
	var out []graph.Function
	for _, pi := range group {
		if i, ok := idx[pi.fn.UID]; ok {
			out[i] = pi.fn
			continue
		}
		idx[pi.fn.UID] = len(out)
		out = append(out, pi.fn)
	}
	return out
}

func libraryOf(group []parsedImport, uid string) string {
	for i := len(group) - 1; i >= 0; i-- {
		if group[i].fn.UID == uid {
			return group[i].imp.Library
		}
	}
	return ""
}

// importExports persists the exports section. Addresses already claimed by
// the functions or imports phases keep their mapping.
func (s *Session) importExports(ctx context.Context, p payload) {
	items, err := p.array(SectionExports)
	if err != nil {
		s.errorf("Failed to parse exports: %v", err)
		return
	}

	type parsedExport struct {
		fn  graph.Function
		raw string
	}
	var exports []parsedExport
	var records []record
	for i, raw := range items {
		rec, ok := decodeRecord(raw)
		if !ok {
			s.errorf("Failed to parse exports: record %d is not an object", i)
			return
		}
		if _, ok := rec.str("name"); !ok {
			s.errorf("Failed to parse exports: Export missing name")
			return
		}
		if _, ok := rec.addr("address"); !ok {
			s.errorf("Failed to parse exports: Export missing address")
			return
		}
		records = append(records, rec)
	}

	for _, rec := range records {
		name, _ := rec.str("name")
		rawAddr, _ := rec.addr("address")
		v, err := address.Parse(rawAddr)
		if err != nil {
			s.errorf("Invalid export address: %s", rawAddr)
			continue
		}
		fn := graph.Function{
			UID:     id.Function(s.binary.Hash, v),
			Name:    name,
			Address: address.Format(v),
			Type:    graph.FunctionExport,
		}
		if prev, ok := s.functions[fn.UID]; ok {
			fn.Size = prev.Size
		}
		exports = append(exports, parsedExport{fn: fn, raw: rawAddr})
	}

	for _, c := range s.chunks(len(exports)) {
		group := exports[c[0]:c[1]]
		batch := make([]graph.Function, 0, len(group))
		for _, e := range group {
			batch = append(batch, e.fn)
		}
		if err := s.sink.UpsertFunctions(ctx, batch); err != nil {
			s.errorf("Failed to import exports batch: %v", err)
			continue
		}
		s.result.Statistics.ExportedFunctions += len(batch)
		s.markWritten(batch)

		for _, e := range group {
			s.register(e.fn.Address, e.fn.UID, false)
			s.register(e.raw, e.fn.UID, false)
			if err := s.sink.Link(ctx, graph.Contains(s.binary.Hash, e.fn.UID)); err != nil {
				s.errorf("Failed to create CONTAINS relationship: %v", err)
			}
		}
	}
}

type parsedCall struct {
	from, to string
	offset   string
	callType graph.CallType
}

// importCalls resolves each call record against the address map and
// persists the resolvable ones.
func (s *Session) importCalls(ctx context.Context, p payload) {
	items, err := p.array(SectionCalls)
	if err != nil {
		s.errorf("Failed to parse calls: %v", err)
		return
	}

	calls := make([]parsedCall, 0, len(items))
	for i, raw := range items {
		rec, ok := decodeRecord(raw)
		if !ok {
			s.errorf("Failed to parse calls: record %d is not an object", i)
			return
		}
		from, ok := rec.addr("from_address")
		if !ok {
			s.errorf("Failed to parse calls: Call missing from_address")
			return
		}
		to, ok := rec.addr("to_address")
		if !ok {
			s.errorf("Failed to parse calls: Call missing to_address")
			return
		}
		offset, ok := rec.addr("offset")
		if !ok {
			offset = "0x0"
		}
		typ, _ := rec.str("type")
		calls = append(calls, parsedCall{
			from:     from,
			to:       to,
			offset:   address.NormalizeOr(offset, offset),
			callType: graph.ParseCallType(typ),
		})
	}

	skipped := 0
	for _, c := range calls {
		caller, ok := s.resolve(c.from)
		if !ok {
			skipped++
			continue
		}
		callee, ok := s.resolve(c.to)
		if !ok {
			skipped++
			continue
		}
		if err := s.sink.Link(ctx, graph.Calls(caller, callee, c.offset, c.callType)); err != nil {
			s.errorf("Failed to create CALLS relationship: %v", err)
			continue
		}
		s.result.Statistics.CallsRelationships++
	}

	s.result.SkippedCalls = skipped
	if skipped > 0 {
		s.logger.Warn("skipped unresolved call edges", "skipped", skipped, "binary", s.binary.Filename)
	}
}

// markWritten records upserted Function keys and counts the new ones.
func (s *Session) markWritten(fns []graph.Function) {
	for _, fn := range fns {
		if !s.written[fn.UID] {
			s.written[fn.UID] = true
			s.result.Statistics.FunctionNodes++
		}
	}
}
