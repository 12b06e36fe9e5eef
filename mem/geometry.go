// Package mem defines the physical memory of the simulated machine.
package mem

// Geometry of the simulated machine. MemSize must equal PageCount * PageSize
// and PageSize must equal 1 << PageShift.
const (
	PageShift = 8
	PageSize  = 1 << PageShift
	PageCount = 64
	MemSize   = PageCount * PageSize

	// PTPOffset is where the page table pointer table starts in page 0.
	PTPOffset = 64

	// OffsetMask extracts the in-page offset from an address.
	OffsetMask = PageSize - 1
)

// The array length is negative, and the build fails, if the geometry is
// inconsistent.
var _ [MemSize - PageCount*PageSize]struct{}
var _ [PageCount*PageSize - MemSize]struct{}
var _ [PageSize - PTPOffset - 1]struct{}

// Address converts a page and an offset into an address. The offset is not
// bounds-checked; offsets beyond the page size overlap the page bits.
func Address(page, offset int) int {
	return (page << PageShift) | offset
}

// PageOf returns the page number that an address falls in.
func PageOf(addr int) int {
	return addr >> PageShift
}

// OffsetOf returns the in-page offset of an address.
func OffsetOf(addr int) int {
	return addr & OffsetMask
}
