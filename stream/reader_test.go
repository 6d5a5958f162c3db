package stream_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/x86dis/stream"
)

var _ = Describe("Reader", func() {
	var r *stream.Reader

	BeforeEach(func() {
		r = stream.FromBytes([]byte{
			0x11,
			0x22, 0x33,
			0x44, 0x55, 0x66, 0x77,
			0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		}, 0x1000)
	})

	It("should start at the origin", func() {
		Expect(r.Pos()).To(Equal(uint64(0x1000)))
		Expect(r.Origin()).To(Equal(uint64(0x1000)))
		Expect(r.End()).To(Equal(uint64(0x100F)))
	})

	It("should read little-endian words and advance", func() {
		b, err := r.ReadByte()
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(byte(0x11)))

		w, err := r.ReadWord()
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(uint16(0x3322)))

		d, err := r.ReadDword()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(uint32(0x77665544)))

		q, err := r.ReadQword()
		Expect(err).NotTo(HaveOccurred())
		Expect(q).To(Equal(uint64(0x0807060504030201)))

		Expect(r.Pos()).To(Equal(uint64(0x100F)))
		Expect(r.Remaining()).To(BeZero())
	})

	It("should fail with end of stream without advancing", func() {
		Expect(r.Seek(0x100D)).To(Succeed())

		_, err := r.ReadDword()
		Expect(err).To(MatchError(stream.ErrEndOfStream))
		Expect(r.Pos()).To(Equal(uint64(0x100D)))

		_, err = r.ReadWord()
		Expect(err).NotTo(HaveOccurred())

		_, err = r.ReadByte()
		Expect(err).To(MatchError(stream.ErrEndOfStream))
	})

	It("should reject seeks outside the window", func() {
		Expect(r.Seek(0xFFF)).To(MatchError(stream.ErrEndOfStream))
		Expect(r.Seek(0x2000)).To(MatchError(stream.ErrEndOfStream))
		Expect(r.Seek(0x100F)).To(Succeed())
	})

	It("should return raw bytes without moving", func() {
		p, err := r.Bytes(0x1001, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal([]byte{0x22, 0x33}))
		Expect(r.Pos()).To(Equal(uint64(0x1000)))

		_, err = r.Bytes(0x100E, 2)
		Expect(err).To(MatchError(stream.ErrEndOfStream))
	})

	It("should map a window of a larger source", func() {
		src := bytes.NewReader([]byte{0xAA, 0xBB, 0xCC, 0xDD})
		w := stream.NewReader(src, 0x400000, 2)

		b, err := w.ReadByte()
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(byte(0xAA)))

		_, err = w.ReadWord()
		Expect(err).To(MatchError(stream.ErrEndOfStream))
	})

	It("should cut a section out of an address-keyed source", func() {
		mem := make([]byte, 0x20)
		for i := range mem {
			mem[i] = byte(i)
		}
		r := stream.Section(bytes.NewReader(mem), 0x10, 4)

		Expect(r.Origin()).To(Equal(uint64(0x10)))
		v, err := r.ReadDword()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x13121110)))

		_, err = r.ReadByte()
		Expect(err).To(MatchError(stream.ErrEndOfStream))
	})
})
