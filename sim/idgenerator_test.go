package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IDGenerator", func() {
	It("should generate sequential IDs", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should generate unique IDs", func() {
		g := NewUniqueIDGenerator()

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})
})
