package fetch_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/x86dis/fetch"
	"github.com/sarchlab/x86dis/insts"
	"github.com/sarchlab/x86dis/stream"
)

// pattern is a backing store where byte addr holds byte(addr).
type pattern struct {
	reads int
}

func (p *pattern) Read(addr uint64, size int) []byte {
	p.reads++
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(addr + uint64(i))
	}
	return data
}

var _ = Describe("Cache", func() {
	var (
		c       *fetch.Cache
		backing *pattern
	)

	BeforeEach(func() {
		backing = &pattern{}
		// Small cache for testing: 4KB, 4-way, 64B lines
		var err error
		c, err = fetch.New(fetch.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
		}, backing)
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Data).To(Equal([]byte{0x00, 0x01, 0x02, 0x03}))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			c.Read(0x1000, 4)

			result := c.Read(0x1000, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal([]byte{0x00, 0x01, 0x02, 0x03}))
			Expect(backing.reads).To(Equal(1))
			Expect(c.Stats().HitRate()).To(Equal(0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Read(0x1000, 4)

			result := c.Read(0x1010, 2)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal([]byte{0x10, 0x11}))
		})

		It("should truncate at the end of the line", func() {
			result := c.Read(0x103E, 8)
			Expect(result.Data).To(Equal([]byte{0x3E, 0x3F}))
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used line when a set is full", func() {
			// 4KB / (4 * 64B) = 16 sets; these all map to set 0
			c.Read(0x0000, 1)
			c.Read(0x0400, 1)
			c.Read(0x0800, 1)
			c.Read(0x0C00, 1)
			c.Read(0x0000, 1)

			result := c.Read(0x1000, 1)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint64(0x0400)))
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))

			Expect(c.Read(0x0000, 1).Hit).To(BeTrue())
			Expect(c.Read(0x0400, 1).Hit).To(BeFalse())
		})
	})

	Describe("Invalidate and Reset", func() {
		It("should refetch an invalidated line", func() {
			c.Read(0x2000, 1)
			c.Invalidate(0x2020)

			Expect(c.Read(0x2000, 1).Hit).To(BeFalse())
			Expect(backing.reads).To(Equal(2))
		})

		It("should clear lines and statistics", func() {
			c.Read(0x2000, 1)
			c.Reset()

			Expect(c.Stats()).To(Equal(fetch.Statistics{}))
			Expect(c.Read(0x2000, 1).Hit).To(BeFalse())
		})

		It("should keep lines when only statistics are reset", func() {
			c.Read(0x2000, 1)
			c.ResetStats()

			Expect(c.Read(0x2000, 1).Hit).To(BeTrue())
			Expect(c.Stats().Reads).To(Equal(uint64(1)))
		})
	})

	Describe("ReadAt", func() {
		It("should read across lines", func() {
			p := make([]byte, 4)
			n, err := c.ReadAt(p, 0x103E)

			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(4))
			Expect(p).To(Equal([]byte{0x3E, 0x3F, 0x40, 0x41}))
			Expect(c.Stats().Misses).To(Equal(uint64(2)))
		})

		It("should reject negative offsets", func() {
			_, err := c.ReadAt(make([]byte, 1), -1)
			Expect(err).To(HaveOccurred())
		})

		It("should feed a byte reader through a section", func() {
			code := []byte{0x48, 0x89, 0xC3, 0x90}
			mem := &image{base: 0x401000, code: code}
			cached, err := fetch.New(fetch.DefaultConfig(), mem)
			Expect(err).ToNot(HaveOccurred())

			section := io.NewSectionReader(cached, 0x401000, int64(len(code)))
			r := stream.NewReader(section, 0x401000, uint64(len(code)))

			inst, err := insts.NewDecoder().Decode(r)
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.String()).To(Equal("MOV RBX, RAX"))
			Expect(r.Pos()).To(Equal(uint64(0x401003)))
		})
	})

	Describe("Config", func() {
		It("should validate the default geometry", func() {
			Expect(fetch.DefaultConfig().Validate()).To(Succeed())
		})

		It("should reject bad geometry", func() {
			_, err := fetch.New(fetch.Config{Size: 1000, Associativity: 4, BlockSize: 64}, backing)
			Expect(err).To(HaveOccurred())

			_, err = fetch.New(fetch.Config{Size: 4096, Associativity: 4, BlockSize: 48}, backing)
			Expect(err).To(HaveOccurred())

			_, err = fetch.New(fetch.Config{Size: 4096, Associativity: 0, BlockSize: 64}, backing)
			Expect(err).To(HaveOccurred())
		})
	})
})

// image maps code at base and reads zero elsewhere.
type image struct {
	base uint64
	code []byte
}

func (m *image) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		a := addr + uint64(i)
		if a >= m.base && a < m.base+uint64(len(m.code)) {
			data[i] = m.code[a-m.base]
		}
	}
	return data
}
