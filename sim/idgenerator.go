package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var idGeneratorMutex sync.Mutex
var idGeneratorInstantiated bool
var idGenerator IDGenerator

// IDGenerator can generate IDs
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// NewSequentialIDGenerator returns a generator whose first ID is "1".
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewUniqueIDGenerator returns a generator that emits globally unique IDs.
// The IDs are not reproducible across runs.
func NewUniqueIDGenerator() IDGenerator {
	return uniqueIDGenerator{}
}

// UseSequentialIDGenerator configures the ID generator to generate IDs in
// sequential.
func UseSequentialIDGenerator() {
	setIDGenerator(NewSequentialIDGenerator())
}

// UseUniqueIDGenerator configures the ID generator to generate globally
// unique IDs.
func UseUniqueIDGenerator() {
	setIDGenerator(NewUniqueIDGenerator())
}

func setIDGenerator(g IDGenerator) {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = g
	idGeneratorInstantiated = true
}

// GetIDGenerator returns the ID generator used in the current run.
func GetIDGenerator() IDGenerator {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if !idGeneratorInstantiated {
		idGenerator = NewSequentialIDGenerator()
		idGeneratorInstantiated = true
	}

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)
	return id
}

type uniqueIDGenerator struct{}

func (g uniqueIDGenerator) Generate() string {
	return xid.New().String()
}
