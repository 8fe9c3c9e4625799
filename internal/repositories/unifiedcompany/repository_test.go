package unifiedcompany

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

func TestCollapse(t *testing.T) {
	rows := collapse([]models.UnifiedCompany{
		{BusinessNumber: "300", CompanyName: "c"},
		{BusinessNumber: "100", CompanyName: "a-old"},
		{BusinessNumber: ""},
		{BusinessNumber: "200", CompanyName: "b"},
		{BusinessNumber: "100", CompanyName: "a-new"},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"100", "200", "300"}, []string{rows[0].BusinessNumber, rows[1].BusinessNumber, rows[2].BusinessNumber})
	assert.Equal(t, "a-new", rows[0].CompanyName)
}

func TestChunkSizeFitsOneStatement(t *testing.T) {
	assert.LessOrEqual(t, DefaultConfig().ChunkSize*len(columns), database.MaxBindParameters)
}

func TestUpdateColumns(t *testing.T) {
	assert.NotContains(t, updateColumns, "business_number")
	assert.NotContains(t, updateColumns, "created_at")
	assert.Contains(t, updateColumns, "confidence")
	assert.Contains(t, updateColumns, "source_url")
}
