package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressRange_Map(t *testing.T) {
	r := ProgressRange{Lo: 10, Hi: 90}

	assert.Equal(t, 10, r.Map(TransferProgress{LoadedBytes: 0, TotalBytes: 100}))
	assert.Equal(t, 50, r.Map(TransferProgress{LoadedBytes: 50, TotalBytes: 100}))
	assert.Equal(t, 10, r.Map(TransferProgress{LoadedBytes: 1, TotalBytes: 1000}), "floor rounded")
	assert.Equal(t, 90, r.Map(TransferProgress{LoadedBytes: 100, TotalBytes: 100}))
	assert.Equal(t, 90, r.Map(TransferProgress{LoadedBytes: 150, TotalBytes: 100}))
	assert.Equal(t, 10, r.Map(TransferProgress{LoadedBytes: 150, TotalBytes: -1}), "unknown total stays at Lo")
}
