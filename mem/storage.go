package mem

import "errors"

// ErrBeyondCapacity is returned by the block accessor when the accessed range
// does not fit in the storage.
var ErrBeyondCapacity = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the bytes of the simulated physical memory.
//
// Single-byte accesses never fail. Addresses wrap around the capacity, so a
// negative address or an address past the end lands somewhere inside the
// storage instead of faulting. The block accessor Read is
// bounds-checked.
type Storage struct {
	data []byte
}

// NewStorage creates a zeroed storage with the specified capacity in bytes.
func NewStorage(capacity int) *Storage {
	if capacity <= 0 {
		panic("storage capacity must be positive")
	}

	return &Storage{data: make([]byte, capacity)}
}

// Capacity returns the number of bytes in the storage.
func (s *Storage) Capacity() int {
	return len(s.data)
}

func (s *Storage) wrap(addr int) int {
	n := len(s.data)
	addr %= n
	if addr < 0 {
		addr += n
	}

	return addr
}

// Byte returns the byte at the given address.
func (s *Storage) Byte(addr int) byte {
	return s.data[s.wrap(addr)]
}

// SetByte sets the byte at the given address.
func (s *Storage) SetByte(addr int, v byte) {
	s.data[s.wrap(addr)] = v
}

// Reset zeroes the whole storage.
func (s *Storage) Reset() {
	clear(s.data)
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address, length int) ([]byte, error) {
	if address < 0 || length < 0 || address+length > len(s.data) {
		return nil, ErrBeyondCapacity
	}

	res := make([]byte, length)
	copy(res, s.data[address:address+length])

	return res, nil
}
