package inspect_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ptsim/inspect"
	"github.com/sarchlab/ptsim/mem"
	"github.com/sarchlab/ptsim/mem/vm"
)

var _ = Describe("Printer", func() {
	var (
		engine *vm.Engine
		buf    *bytes.Buffer
	)

	BeforeEach(func() {
		engine = vm.MakeBuilder().Build()
		buf = new(bytes.Buffer)
	})

	It("should print the free map of a fresh engine", func() {
		inspect.PrintFreeMap(buf, engine)

		Expect(buf.String()).To(Equal("--- PAGE FREE MAP ---\n" +
			"#...............\n" +
			"................\n" +
			"................\n" +
			"................\n"))
	})

	It("should print allocated pages", func() {
		Expect(engine.NewProcess(1, 17)).To(Succeed())

		inspect.PrintFreeMap(buf, engine)

		Expect(buf.String()).To(Equal("--- PAGE FREE MAP ---\n" +
			"################\n" +
			"###.............\n" +
			"................\n" +
			"................\n"))
	})

	It("should print the page table", func() {
		Expect(engine.NewProcess(1, 2)).To(Succeed())
		Expect(engine.NewProcess(2, 3)).To(Succeed())

		inspect.PrintPageTable(buf, engine, 2)

		Expect(buf.String()).To(Equal("--- PROCESS 2 PAGE TABLE ---\n" +
			"00 -> 05\n" +
			"01 -> 06\n" +
			"02 -> 07\n"))
	})

	It("should print only the header for an empty table", func() {
		Expect(engine.NewProcess(3, 0)).To(Succeed())

		inspect.PrintPageTable(buf, engine, 3)

		Expect(buf.String()).To(Equal("--- PROCESS 3 PAGE TABLE ---\n"))
	})

	It("should dump a page", func() {
		Expect(engine.NewProcess(1, 1)).To(Succeed())
		_, err := engine.Store(1, 0x11, 0xab)
		Expect(err).ToNot(HaveOccurred())

		Expect(inspect.HexDump(buf, engine, 2)).To(Succeed())

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(mem.PageSize / 16))
		Expect(lines[1]).To(HavePrefix("0210: 00 ab 00"))
	})

	It("should fail to dump a page beyond the memory", func() {
		Expect(inspect.HexDump(buf, engine, mem.PageCount)).
			To(MatchError(mem.ErrBeyondCapacity))
	})
})
