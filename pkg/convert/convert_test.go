package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"reactor", "goroutine"}, UniqueStrings([]string{"reactor", "goroutine", "reactor"}))
	assert.Equal(t, []int{4, 1, 2}, UniqueInts([]int{4, 1, 4, 2, 1}))
	assert.Nil(t, UniqueInts(nil))
}
