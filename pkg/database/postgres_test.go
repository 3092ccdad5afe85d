package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert jadwal: %w", &pq.Error{Code: "23505", Constraint: "unique_jadwal_per_guru"})
	name, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "unique_jadwal_per_guru", name)

	name, ok = UniqueViolation(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "unique_jadwal_per_kelas"`})
	assert.True(t, ok)
	assert.Contains(t, name, "unique_jadwal_per_kelas")

	_, ok = UniqueViolation(&pq.Error{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("timeout"))
	assert.False(t, ok)
}
