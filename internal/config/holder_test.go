package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolder_UpdateReturnsPrevious(t *testing.T) {
	first := DefaultConfig()
	h := NewHolder(first, "/etc/gradecal/config.toml")

	assert.Same(t, first, h.Config())
	assert.Equal(t, "/etc/gradecal/config.toml", h.Path())

	next := DefaultConfig()
	next.Sync.Schedule = "*/5 * * * *"

	assert.Same(t, first, h.Update(next))
	assert.Same(t, next, h.Config())
	assert.Equal(t, "0 */6 * * *", first.Sync.Schedule, "old snapshot untouched")
}

func TestHolder_ReadersDuringReload(t *testing.T) {
	h := NewHolder(DefaultConfig(), "/tmp/config.toml")

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			for range 200 {
				cfg := h.Config()
				assert.Positive(t, cfg.Sync.UserBatchSize)
			}
		}()

		go func() {
			defer wg.Done()

			for i := range 50 {
				cfg := DefaultConfig()
				cfg.Sync.UserBatchSize = i + 1
				h.Update(cfg)
			}
		}()
	}

	wg.Wait()
}
