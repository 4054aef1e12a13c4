package config

import "sync/atomic"

// Holder is the live config of a long-running serve. Readers take a
// snapshot with Config and must not modify it; a reload installs a new
// *Config with Update rather than editing the current one.
type Holder struct {
	cfg  atomic.Pointer[Config]
	path string
}

// NewHolder returns a Holder serving cfg, loaded from path.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.cfg.Store(cfg)

	return h
}

// Config returns the current snapshot.
func (h *Holder) Config() *Config {
	return h.cfg.Load()
}

// Path returns the file the config is reloaded from.
func (h *Holder) Path() string {
	return h.path
}

// Update installs cfg and returns the config it replaced.
func (h *Holder) Update(cfg *Config) *Config {
	return h.cfg.Swap(cfg)
}
