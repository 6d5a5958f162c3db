// Package fetch provides a code fetch cache using Akita cache components.
package fetch

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
}

// DefaultConfig returns a 32KB, 8-way cache with 64B lines.
func DefaultConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 8,
		BlockSize:     64,
	}
}

// Validate checks that the geometry describes at least one set.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block size must be a positive power of two, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be positive, got %d", c.Associativity)
	}
	if c.Size < c.Associativity*c.BlockSize || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a multiple of %d ways x %dB", c.Size, c.Associativity, c.BlockSize)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the line was present.
	Hit bool
	// Data is the bytes read, never crossing the end of the line.
	Data []byte
	// Evicted is true if a valid line was replaced.
	Evicted bool
	// EvictedAddr is the address of the replaced line (if Evicted is true).
	EvictedAddr uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads     uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the fraction of reads that hit.
func (s Statistics) HitRate() float64 {
	if s.Reads == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Reads)
}

// BackingStore supplies code bytes on a miss.
type BackingStore interface {
	// Read fetches size bytes at addr. Unmapped bytes read as zero.
	Read(addr uint64, size int) []byte
}

// Cache is a read-only, set-associative cache of code bytes.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats   Statistics
	backing BackingStore
}

// New creates a cache with the given configuration in front of backing.
func New(config Config, backing BackingStore) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Read reads up to size bytes at addr from a single line. The result is
// truncated at the end of the line.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++

	blockAddr := c.blockAddr(addr)
	offset := int(addr - blockAddr)
	if rest := c.config.BlockSize - offset; size > rest {
		size = rest
	}

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		data := c.dataStore[c.blockIndex(block)]
		return AccessResult{
			Hit:  true,
			Data: data[offset : offset+size],
		}
	}

	c.stats.Misses++
	return c.fill(blockAddr, offset, size)
}

// fill loads the line at blockAddr from the backing store.
func (c *Cache) fill(blockAddr uint64, offset, size int) AccessResult {
	result := AccessResult{}

	victim := c.directory.FindVictim(blockAddr)
	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
	}

	clear(victimData)
	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	result.Data = victimData[offset : offset+size]
	return result
}

// ReadAt implements io.ReaderAt with off taken as a virtual address. It
// always fills p.
func (c *Cache) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("fetch: negative address %d", off)
	}

	addr := uint64(off)
	n := 0
	for n < len(p) {
		res := c.Read(addr, len(p)-n)
		n += copy(p[n:], res.Data)
		addr += uint64(len(res.Data))
	}
	return n, nil
}

// Invalidate marks the line holding addr as invalid.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
	}
}

// Reset invalidates all lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
