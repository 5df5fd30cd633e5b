package calc

import (
	"container/list"
	"fmt"

	"github.com/expr-lang/expr/vm"
)

// DefaultProgramCacheSize bounds the number of compiled programs kept per engine.
const DefaultProgramCacheSize = 256

// ProgramCache is an LRU cache of compiled expr-lang programs keyed by source.
// It is not safe for concurrent use; ExprEngine guards it with its own mutex.
type ProgramCache struct {
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	hits    int64
	misses  int64
}

type cachedProgram struct {
	source  string
	program *vm.Program
}

// NewProgramCache creates a cache holding at most maxSize programs.
func NewProgramCache(maxSize int) *ProgramCache {
	if maxSize < 1 {
		maxSize = DefaultProgramCacheSize
	}
	return &ProgramCache{
		index:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Get returns the program compiled from source, marking it most recently used.
func (c *ProgramCache) Get(source string) (*vm.Program, bool) {
	elem, ok := c.index[source]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cachedProgram).program, true
}

// Put stores program, evicting the least recently used entry when full.
func (c *ProgramCache) Put(source string, program *vm.Program) {
	if elem, ok := c.index[source]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cachedProgram).program = program
		return
	}
	c.index[source] = c.order.PushFront(&cachedProgram{source: source, program: program})
	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		delete(c.index, oldest.Value.(*cachedProgram).source)
		c.order.Remove(oldest)
	}
}

// Clear drops every program. Called whenever the variable table changes,
// since programs are compiled against the table's names and types.
func (c *ProgramCache) Clear() {
	c.index = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int { return c.order.Len() }

func (c *ProgramCache) String() string {
	return fmt.Sprintf("ProgramCache{size=%d, hits=%d, misses=%d}", c.order.Len(), c.hits, c.misses)
}
