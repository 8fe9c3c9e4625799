package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func NewInsertBuilder() *sqlbuilder.InsertBuilder {
	return sqlbuilder.PostgreSQL.NewInsertBuilder()
}

func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

// UpsertClause renders "ON CONFLICT (keys) DO UPDATE SET col = EXCLUDED.col, ..."
// for every column in update. extra assignments are appended verbatim.
func UpsertClause(keys, update []string, extra ...string) string {
	sets := make([]string, 0, len(update)+len(extra))
	for _, col := range update {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	sets = append(sets, extra...)

	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
}

// MaxBindParameters is the Postgres limit on placeholders in one statement
const MaxBindParameters = 65535

// MaxRowsPerStatement is how many rows of a multi-row insert fit under MaxBindParameters
func MaxRowsPerStatement(columns int) int {
	if columns < 1 {
		return MaxBindParameters
	}
	return MaxBindParameters / columns
}

// Batches splits items into consecutive slices of at most size elements
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
