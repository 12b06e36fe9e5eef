package vm

import (
	"github.com/dgraph-io/ristretto/v2"
	"github.com/sarchlab/ptsim/mem"
)

// maxCachedPID bounds the processes whose translations may be cached. Their
// pointer table entries all fall inside page 0.
const maxCachedPID = mem.PageSize - mem.PTPOffset

// A tlb caches (pid, vpn) to physical page translations. A nil *tlb is a
// valid, disabled TLB.
type tlb struct {
	cache  *ristretto.Cache[uint64, int]
	hits   uint64
	misses uint64
}

func newTLB(numEntries int) *tlb {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, int]{
		NumCounters:        int64(numEntries) * 10,
		MaxCost:            int64(numEntries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		panic(err)
	}

	return &tlb{cache: cache}
}

func tlbKey(pid, vpn int) (uint64, bool) {
	if pid < 0 || pid >= maxCachedPID || vpn < 0 || vpn >= mem.PageSize {
		return 0, false
	}

	return uint64(pid)<<mem.PageShift | uint64(vpn), true
}

func (t *tlb) lookup(pid, vpn int) (int, bool) {
	if t == nil {
		return 0, false
	}

	key, ok := tlbKey(pid, vpn)
	if !ok {
		return 0, false
	}

	page, found := t.cache.Get(key)
	if found {
		t.hits++
	} else {
		t.misses++
	}

	return page, found
}

func (t *tlb) insert(pid, vpn, page int) {
	if t == nil {
		return
	}

	key, ok := tlbKey(pid, vpn)
	if !ok {
		return
	}

	t.cache.Set(key, page, 1)
	t.cache.Wait()
}

func (t *tlb) flush() {
	if t == nil {
		return
	}

	t.cache.Clear()
}

func (t *tlb) close() {
	if t == nil {
		return
	}

	t.cache.Close()
}
