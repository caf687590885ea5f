package payload

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/teranos/dcmindex/source"
)

func TestCachePinsAreBounded(t *testing.T) {
	c := newCache(t, 2)

	for i := 0; i < 5; i++ {
		uid := fmt.Sprintf("1.%d", i)
		h := c.NewHandle(uid, "/"+uid, func() (source.Dictionary, error) {
			return source.Map{tag.SOPInstanceUID: uid}, nil
		})
		_, ok := h.Get()
		assert.True(t, ok)
	}

	s := c.Stats()
	assert.Equal(t, 2, s.Pinned)
	assert.Equal(t, int64(5), s.Loads)
}

func TestCacheZeroCapacityDisablesPinning(t *testing.T) {
	c := newCache(t, 0)
	h := c.NewHandle("1", "/1", func() (source.Dictionary, error) {
		return source.Map{tag.SOPInstanceUID: "1"}, nil
	})

	_, ok := h.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, c.Stats().Pinned)

	c.Purge()
}

func TestNilCacheIsUsable(t *testing.T) {
	var c *Cache
	assert.Equal(t, Stats{}, c.Stats())
	c.Purge()
}
