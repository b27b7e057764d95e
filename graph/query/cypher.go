package query

import (
	"fmt"
	"strings"
)

// BuildMatch generates a MATCH clause for a node with the given type and alias.
//
// Example:
//
//	BuildMatch("Function", "f") // Returns: "MATCH (f:Function)"
func BuildMatch(nodeType string, alias string) string {
	return fmt.Sprintf("MATCH (%s:%s)", alias, nodeType)
}

// BuildWhere generates a WHERE clause joining predicates with AND.
// Returns empty string and nil params if predicates is empty or nil.
//
// Example:
//
//	where, params := BuildWhere([]Predicate{
//	    {Field: "name", Op: Contains, Value: "crypt"},
//	    {Field: "type", Op: Eq, Value: "Import"},
//	}, "f")
//	// where:  "WHERE f.name CONTAINS $p0 AND f.type = $p1"
//	// params: {"p0": "crypt", "p1": "Import"}
func BuildWhere(predicates []Predicate, alias string) (string, map[string]any) {
	cond, params := buildConditions(predicates, alias, " AND ")
	if cond == "" {
		return "", nil
	}
	return "WHERE " + cond, params
}

// BuildWhereAny is BuildWhere joining predicates with OR. Used for name-or-uid
// lookups where one parameter is compared against several properties.
//
// Example:
//
//	where, _ := BuildWhereAny([]Predicate{
//	    {Field: "name", Op: Eq, Value: "main", Param: "function"},
//	    {Field: "uid", Op: Eq, Value: "main", Param: "function"},
//	}, "f")
//	// where: "WHERE f.name = $function OR f.uid = $function"
func BuildWhereAny(predicates []Predicate, alias string) (string, map[string]any) {
	cond, params := buildConditions(predicates, alias, " OR ")
	if cond == "" {
		return "", nil
	}
	return "WHERE " + cond, params
}

// AnyOf renders predicates joined by OR without the WHERE keyword.
func AnyOf(predicates []Predicate, alias string) (string, map[string]any) {
	return buildConditions(predicates, alias, " OR ")
}

// Condition renders predicates joined by AND without the WHERE keyword, for
// callers composing larger boolean expressions.
func Condition(predicates []Predicate, alias string) (string, map[string]any) {
	return buildConditions(predicates, alias, " AND ")
}

func buildConditions(predicates []Predicate, alias, sep string) (string, map[string]any) {
	if len(predicates) == 0 {
		return "", nil
	}

	params := make(map[string]any)
	conditions := make([]string, 0, len(predicates))

	for i, pred := range predicates {
		paramName := pred.Param
		if paramName == "" {
			paramName = fmt.Sprintf("p%d", i)
		}
		conditions = append(conditions, buildCondition(pred, alias, paramName))

		if requiresValue(pred.Op) {
			params[paramName] = pred.Value
		}
	}

	return strings.Join(conditions, sep), params
}

// buildCondition constructs a single WHERE condition for a predicate.
func buildCondition(pred Predicate, alias string, paramName string) string {
	fieldRef := fmt.Sprintf("%s.%s", alias, pred.Field)

	switch pred.Op {
	case IsNull, IsNotNull:
		return fmt.Sprintf("%s %s", fieldRef, pred.Op)
	case Eq, Neq, Lt, Lte, Gt, Gte, Contains, StartsWith, EndsWith, In:
		return fmt.Sprintf("%s %s $%s", fieldRef, pred.Op, paramName)
	default:
		return fmt.Sprintf("%s = $%s", fieldRef, paramName)
	}
}

// requiresValue returns true if the operation requires a parameter value.
func requiresValue(op Op) bool {
	return op != IsNull && op != IsNotNull
}

// BuildReturn generates a RETURN clause with the specified alias and optional fields.
// If fields is empty, returns the entire node.
//
// Examples:
//
//	BuildReturn("f", nil)                       // "RETURN f"
//	BuildReturn("f", []string{"name", "uid"})   // "RETURN f.name, f.uid"
func BuildReturn(alias string, fields []string) string {
	if len(fields) == 0 {
		return fmt.Sprintf("RETURN %s", alias)
	}

	fieldRefs := make([]string, 0, len(fields))
	for _, field := range fields {
		fieldRefs = append(fieldRefs, fmt.Sprintf("%s.%s", alias, field))
	}

	return "RETURN " + strings.Join(fieldRefs, ", ")
}

// BuildReturnAs is BuildReturn with every field aliased to "alias_field",
// giving rows stable column names independent of the node alias.
//
//	BuildReturnAs("b", []string{"hash"}) // "RETURN b.hash AS b_hash"
func BuildReturnAs(alias string, fields []string) string {
	if len(fields) == 0 {
		return fmt.Sprintf("RETURN %s", alias)
	}
	refs := make([]string, 0, len(fields))
	for _, field := range fields {
		refs = append(refs, fmt.Sprintf("%s.%s AS %s_%s", alias, field, alias, field))
	}
	return "RETURN " + strings.Join(refs, ", ")
}

// BuildTraversal generates a Cypher pattern for traversing a relationship.
//   - Outgoing:   (fromAlias)-[:REL]->(toAlias:TargetType)
//   - Incoming:   (fromAlias)<-[:REL]-(toAlias:TargetType)
//   - Undirected: (fromAlias)-[:REL]-(toAlias:TargetType)
func BuildTraversal(t Traversal, fromAlias string, toAlias string) string {
	rel := fmt.Sprintf("[:%s]", t.Relationship)
	target := fmt.Sprintf("%s:%s", toAlias, t.TargetType)

	switch t.Direction {
	case Incoming:
		return fmt.Sprintf("(%s)<-%s-(%s)", fromAlias, rel, target)
	case Undirected:
		return fmt.Sprintf("(%s)-%s-(%s)", fromAlias, rel, target)
	default:
		return fmt.Sprintf("(%s)-%s->(%s)", fromAlias, rel, target)
	}
}

// BuildMerge generates an idempotent upsert of one node keyed on keyProp.
// Every other property in props is assigned with SET from a parameter of
// the same name.
//
// Example:
//
//	BuildMerge("Library", "l", "name", nil)
//	// "MERGE (l:Library {name: $name})"
//	BuildMerge("String", "s", "uid", []string{"value", "address"})
//	// "MERGE (s:String {uid: $uid}) SET s.value = $value, s.address = $address"
func BuildMerge(label, alias, keyProp string, props []string) string {
	stmt := fmt.Sprintf("MERGE (%s:%s {%s: $%s})", alias, label, keyProp, keyProp)
	if set := buildSet(alias, "$", props); set != "" {
		stmt += " " + set
	}
	return stmt
}

// BuildUnwindMerge generates a batched upsert over a list parameter named
// "rows", each element a map holding keyProp and props.
//
// Example:
//
//	BuildUnwindMerge("Function", "f", "uid", []string{"name"})
//	// "UNWIND $rows AS row MERGE (f:Function {uid: row.uid}) SET f.name = row.name"
func BuildUnwindMerge(label, alias, keyProp string, props []string) string {
	stmt := fmt.Sprintf("UNWIND $rows AS row MERGE (%s:%s {%s: row.%s})", alias, label, keyProp, keyProp)
	if set := buildSet(alias, "row.", props); set != "" {
		stmt += " " + set
	}
	return stmt
}

// BuildMergeEdge generates an idempotent edge upsert between two existing
// nodes matched by key. Parameters are $from and $to; each name in props is
// assigned from a parameter of the same name. If either endpoint is absent
// the statement matches nothing and writes nothing.
//
// Example:
//
//	BuildMergeEdge("Binary", "hash", "CONTAINS", "Function", "uid", nil)
//	// "MATCH (a:Binary {hash: $from}), (b:Function {uid: $to}) MERGE (a)-[r:CONTAINS]->(b)"
func BuildMergeEdge(fromLabel, fromKey, relType, toLabel, toKey string, props []string) string {
	stmt := fmt.Sprintf("MATCH (a:%s {%s: $from}), (b:%s {%s: $to}) MERGE (a)-[r:%s]->(b)",
		fromLabel, fromKey, toLabel, toKey, relType)
	if set := buildSet("r", "$", props); set != "" {
		stmt += " " + set
	}
	return stmt
}

func buildSet(alias, source string, props []string) string {
	if len(props) == 0 {
		return ""
	}
	assignments := make([]string, 0, len(props))
	for _, p := range props {
		assignments = append(assignments, fmt.Sprintf("%s.%s = %s%s", alias, p, source, p))
	}
	return "SET " + strings.Join(assignments, ", ")
}
