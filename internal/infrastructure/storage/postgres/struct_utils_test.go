package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
)

type mockDocument struct {
	entity.Document
	CustomerID id.ID  `db:"customer_id" json:"customerId"`
	Status     string `db:"status" json:"status"`
	Items      []int  `db:"-" json:"items"`
}

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	expectedCols := []string{
		"id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"number", "date", "comment",
		"customer_id", "status",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_EmbeddedDocument(t *testing.T) {
	doc := mockDocument{
		Document:   entity.NewDocument(),
		CustomerID: id.New(),
		Status:     "draft",
		Items:      []int{1, 2, 3},
	}
	doc.Number = "ORD-2026-00001"
	doc.Version = 5

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "ORD-2026-00001", m["number"])
	assert.Equal(t, doc.CustomerID, m["customer_id"])
	assert.Equal(t, "draft", m["status"])

	// db:"-" fields must not leak into SQL
	_, hasItems := m["-"]
	assert.False(t, hasItems)
	assert.Len(t, m, 12)
}

func TestStructToMap_Pointer(t *testing.T) {
	doc := &mockDocument{Document: entity.NewDocument(), Status: "pending"}

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "pending", m["status"])
}

func TestStructToMap_CachesMetadata(t *testing.T) {
	// Two calls for the same type must produce identical maps.
	doc := mockDocument{Document: entity.NewDocument()}
	doc.Date = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first := StructToMap(doc)
	second := StructToMap(doc)

	assert.Equal(t, first, second)
}
