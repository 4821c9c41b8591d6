package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 20)
	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPerPage, p.PerPage)
	require.Equal(t, 3, p.TotalPages)
	require.Zero(t, p.Offset())
}

func TestPaginationOffset(t *testing.T) {
	p := NewPagination(3, 8, 100)
	require.Equal(t, 16, p.Offset())
	require.Equal(t, 13, p.TotalPages)
}
