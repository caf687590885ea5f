package payload

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/source"
	"github.com/teranos/dcmindex/source/sourcetest"
)

func newCache(t *testing.T, capacity int) *Cache {
	t.Helper()
	c, err := NewCache(capacity, nil)
	require.NoError(t, err)
	return c
}

func TestNewCacheRejectsNegativeCapacity(t *testing.T) {
	_, err := NewCache(-1, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestHandleLoadsOnFirstAccess(t *testing.T) {
	src := sourcetest.New()
	src.Put("/data/a.dcm", source.Map{tag.SOPInstanceUID: "1.2.3"})
	c := newCache(t, 4)

	h := c.NewHandle("1.2.3", "/data/a.dcm", func() (source.Dictionary, error) {
		return src.Read("/data/a.dcm")
	})
	assert.Equal(t, 0, src.Reads("/data/a.dcm"))

	d, ok := h.Get()
	require.True(t, ok)
	assert.Equal(t, "1.2.3", d.String(tag.SOPInstanceUID))
	assert.Equal(t, 1, src.Reads("/data/a.dcm"))
	assert.Equal(t, int64(1), c.Stats().Loads)
}

func TestHandleCompactRederivesSameValues(t *testing.T) {
	src := sourcetest.New()
	src.Put("/data/a.dcm", source.Map{
		tag.SOPInstanceUID: "1.2.3",
		tag.SOPClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		tag.NumberOfFrames: "4",
	})
	c := newCache(t, 4)
	h := c.NewHandle("1.2.3", "/data/a.dcm", func() (source.Dictionary, error) {
		return src.Read("/data/a.dcm")
	})

	before, ok := h.Get()
	require.True(t, ok)

	h.Compact()
	assert.Equal(t, 0, c.Stats().Pinned)

	after, ok := h.Get()
	require.True(t, ok)
	assert.Equal(t, 2, src.Reads("/data/a.dcm"))

	for _, tg := range []tag.Tag{tag.SOPInstanceUID, tag.SOPClassUID, tag.NumberOfFrames} {
		assert.Equal(t, before.String(tg), after.String(tg))
	}
}

func TestHandleSeedSkipsRead(t *testing.T) {
	src := sourcetest.New()
	c := newCache(t, 4)
	h := c.NewHandle("1.2.3", "/data/a.dcm", func() (source.Dictionary, error) {
		return src.Read("/data/a.dcm")
	})

	h.Seed(source.Map{tag.SOPInstanceUID: "1.2.3"})
	assert.Equal(t, 1, c.Stats().Pinned)

	d, ok := h.Get()
	require.True(t, ok)
	assert.Equal(t, "1.2.3", d.String(tag.SOPInstanceUID))
	assert.Equal(t, 0, src.TotalReads())
}

func TestHandleFailureDegradesToAbsent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := NewCache(2, zap.New(core).Sugar())
	require.NoError(t, err)

	src := sourcetest.New()
	h := c.NewHandle("9.9", "/missing.dcm", func() (source.Dictionary, error) {
		return src.Read("/missing.dcm")
	})

	d, ok := h.Get()
	assert.False(t, ok)
	assert.Nil(t, d)
	assert.Equal(t, int64(1), c.Stats().Failures)

	entries := logs.FilterMessage("Payload unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/missing.dcm", entries[0].ContextMap()["path"])
}

func TestHandleRecoversWhenFileReturns(t *testing.T) {
	src := sourcetest.New()
	src.Fail("/data/a.dcm", errors.New("truncated"))
	h := (*Cache)(nil).NewHandle("1", "/data/a.dcm", func() (source.Dictionary, error) {
		return src.Read("/data/a.dcm")
	})

	_, ok := h.Get()
	require.False(t, ok)

	src.Put("/data/a.dcm", source.Map{tag.SOPInstanceUID: "1"})
	d, ok := h.Get()
	require.True(t, ok)
	assert.Equal(t, "1", d.String(tag.SOPInstanceUID))
}

func TestHandleConcurrentGetAndCompact(t *testing.T) {
	src := sourcetest.New()
	src.Put("/data/a.dcm", source.Map{tag.SOPInstanceUID: "1.2.3"})
	c := newCache(t, 1)
	h := c.NewHandle("1.2.3", "/data/a.dcm", func() (source.Dictionary, error) {
		return src.Read("/data/a.dcm")
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%5 == 0 {
					h.Compact()
					continue
				}
				d, ok := h.Get()
				if assert.True(t, ok) {
					assert.Equal(t, "1.2.3", d.String(tag.SOPInstanceUID))
				}
			}
		}(i)
	}
	wg.Wait()
}
