package parser

import (
	"sort"
	"strconv"
	"sync"
)

// GenericID は専用パーサーのないツールに使う汎用パーサーのID。
const GenericID = "generic"

// Registry はパーサーIDから Factory への対応表。
// ツールを増やすときは Register を1回呼ぶだけでよい。
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry は汎用パーサーだけを登録した Registry を返す。
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(GenericID, NewGeneric)
	return r
}

// DefaultRegistry は組み込みパーサーをすべて登録した Registry を返す。
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("hydra", NewHydra)
	r.Register("medusa", NewMedusa)
	for _, id := range []string{"gobuster", "dirb", "ffuf", "dirsearch"} {
		r.Register(id, NewDirScan)
	}
	r.Register("sqlmap", NewSQLMap)
	r.Register("nikto", NewNikto)
	r.Register("nuclei", NewNuclei)
	r.Register("nmap", NewNmap)
	return r
}

// Register は id に Factory を割り当てる。既存の割り当ては上書きされる。
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// Has は id に専用パーサーがあるかどうか。
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// For は id のパーサーを新しく作る。未登録なら汎用パーサーを返す。
func (r *Registry) For(id string, ctx Context) Parser {
	r.mu.RLock()
	f, ok := r.factories[id]
	if !ok {
		f = r.factories[GenericID]
	}
	r.mu.RUnlock()
	if f == nil {
		return NewGeneric(ctx)
	}
	return f(ctx)
}

// IDs は登録済みIDを名前順で返す。
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func itoa(n int) string { return strconv.Itoa(n) }
