package config

import (
	"sync"

	"github.com/spf13/viper"
)

// Runtime is the live, process-wide configuration consulted by the rest of
// the application. Values merged through Configure take effect immediately.
type Runtime struct {
	mu sync.RWMutex
	v  *viper.Viper
}

func NewRuntime(v *viper.Viper) *Runtime {
	if v == nil {
		v = viper.New()
		setDefaults(v)
	}
	return &Runtime{v: v}
}

func (r *Runtime) Configure(values map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, val := range values {
		r.v.Set(key, val)
	}
}

func (r *Runtime) Merge(values map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v.MergeConfigMap(values)
}

func (r *Runtime) Get(key string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.Get(key)
}

func (r *Runtime) GetString(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.GetString(key)
}

func (r *Runtime) GetBool(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.GetBool(key)
}

func (r *Runtime) GetInt(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.GetInt(key)
}

func (r *Runtime) AllSettings() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.AllSettings()
}
