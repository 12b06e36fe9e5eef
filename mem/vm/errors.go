package vm

import "fmt"

// Resource names what an allocation step was trying to obtain.
type Resource string

// Resources that NewProcess allocates.
const (
	PageTableResource Resource = "page table"
	DataPageResource  Resource = "data page"
)

// OutOfMemoryError is returned by NewProcess when no free physical page is
// left for the next allocation step.
type OutOfMemoryError struct {
	PID      int
	Resource Resource
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("OOM: proc %d: %s", e.PID, e.Resource)
}

// PageFaultError is returned by translation when the engine is configured to
// fault on unmapped pages and the virtual address is not mapped.
type PageFaultError struct {
	PID   int
	VAddr int
}

func (e *PageFaultError) Error() string {
	return fmt.Sprintf("PAGE FAULT: proc %d: vaddr %d", e.PID, e.VAddr)
}
