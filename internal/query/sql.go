package query

import (
	"fmt"
	"strings"
)

// PaginationColumn resolves the entity-specific keyset column of spec
// §4.D.2 ("Blocks -> id; Transactions -> block_height").
func PaginationColumn(entity string) string {
	switch entity {
	case "Block":
		return "id"
	default:
		return "block_height"
	}
}

// Plan is the resolved SQL shape of spec §4.D.2: table, WHERE clauses,
// ORDER BY, and LIMIT/OFFSET, ready for a repository to bind into a pgx
// query.
type Plan struct {
	Table   string
	Where   []string
	Args    []any
	Column  string
	Order   OrderBy
	Limit   int
	Offset  int
}

// SQL renders the final query string. Filter and cursor values are
// inlined as escaped literals, not positional placeholders, so Args
// stays empty.
func (p Plan) SQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", p.Table)
	if len(p.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", strings.Join(p.Where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s %s", p.Column, strings.ToUpper(string(p.Order)))
	fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	if p.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", p.Offset)
	}
	return b.String()
}

// BuildPlan projects a validated Pagination plus subject/namespace/height
// filters into the SQL shape of §4.D.2. Callers must call Validate first;
// BuildPlan does not re-validate.
func BuildPlan(table, entity string, p Pagination, subjectWhere string, namespace string, minHeight *uint64) Plan {
	plan := Plan{
		Table:  table,
		Column: PaginationColumn(entity),
		Order:  p.EffectiveOrder(),
		Limit:  p.EffectiveLimit(),
	}

	if subjectWhere != "" {
		plan.Where = append(plan.Where, subjectWhere)
	}
	if namespace != "" {
		plan.Where = append(plan.Where, fmt.Sprintf("namespace = '%s'", escapeLiteral(namespace)))
	}
	if minHeight != nil {
		plan.Where = append(plan.Where, fmt.Sprintf("block_height >= %d", *minHeight))
	}

	if cursorClause, ok := p.cursorFilter(plan.Column); ok {
		plan.Where = append(plan.Where, cursorClause)
	} else if p.Offset != nil {
		plan.Offset = *p.Offset
	}

	return plan
}

// cursorFilter renders the keyset predicate for After/Before, per §4.D.2
// ("the cursor filter is keyset on [pagination_column]").
func (p Pagination) cursorFilter(column string) (string, bool) {
	switch {
	case p.After != "":
		return fmt.Sprintf("%s > '%s'", column, escapeLiteral(p.After)), true
	case p.Before != "":
		return fmt.Sprintf("%s < '%s'", column, escapeLiteral(p.Before)), true
	default:
		return "", false
	}
}

func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
