package command

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ptsim/mem/vm"
)

var _ = Describe("Dispatcher", func() {
	var (
		engine     *vm.Engine
		out        *bytes.Buffer
		dispatcher *Dispatcher
	)

	run := func(line string) string {
		err := dispatcher.Execute(strings.Fields(line))
		Expect(err).ToNot(HaveOccurred())
		return out.String()
	}

	BeforeEach(func() {
		engine = vm.MakeBuilder().Build()
		out = new(bytes.Buffer)
		dispatcher = NewDispatcher(engine, out, nil)
	})

	It("should store and load a byte", func() {
		Expect(run("np 1 2 sb 1 0 99 lb 1 0")).To(Equal(
			"Store proc 1: 0 => 512, value=99\n" +
				"Load proc 1: 0 => 512, value=99\n"))
	})

	It("should free everything but page 0 after a kill", func() {
		Expect(run("np 1 1 kp 1 pfm")).To(Equal(
			"--- PAGE FREE MAP ---\n" +
				"#...............\n" +
				"................\n" +
				"................\n" +
				"................\n"))
	})

	It("should kill a process that was never created", func() {
		Expect(run("np 1 4 sb 9 1536 5 kp 9 pfm")).To(Equal(
			"Store proc 9: 1536 => 0, value=5\n" +
				"--- PAGE FREE MAP ---\n" +
				"..####..........\n" +
				"................\n" +
				"................\n" +
				"................\n"))
	})

	It("should print the page table", func() {
		Expect(run("np 1 2 ppt 1")).To(Equal(
			"--- PROCESS 1 PAGE TABLE ---\n" +
				"00 -> 02\n" +
				"01 -> 03\n"))
	})

	It("should print the requested value and the truncated load", func() {
		Expect(run("np 1 1 sb 1 5 300 lb 1 5")).To(Equal(
			"Store proc 1: 5 => 517, value=300\n" +
				"Load proc 1: 5 => 517, value=44\n"))
	})

	It("should report out of memory and continue", func() {
		Expect(run("np 1 63 np 2 1 lb 1 0")).To(Equal(
			"OOM: proc 1: data page\n" +
				"OOM: proc 2: page table\n" +
				"Load proc 1: 0 => 512, value=0\n"))
	})

	It("should parse malformed numbers as 0", func() {
		Expect(run("np x 1 ppt 0")).To(Equal(
			"--- PROCESS 0 PAGE TABLE ---\n" +
				"00 -> 02\n"))
	})

	It("should read missing trailing arguments as 0", func() {
		Expect(run("np 1 1 sb 1")).To(Equal(
			"Store proc 1: 0 => 512, value=0\n"))
	})

	It("should skip unknown tokens", func() {
		Expect(run("hello np 1 1 world lb 1 0")).To(Equal(
			"Load proc 1: 0 => 512, value=0\n"))
	})

	It("should print page faults in hardened mode", func() {
		engine = vm.MakeBuilder().WithPageFaultOnUnmapped(true).Build()
		dispatcher = NewDispatcher(engine, out, nil)

		Expect(run("np 1 1 lb 1 256 sb 2 0 1")).To(Equal(
			"PAGE FAULT: proc 1: vaddr 256\n" +
				"PAGE FAULT: proc 2: vaddr 0\n"))
	})

	It("should recognize command names", func() {
		Expect(IsCommand("pfm")).To(BeTrue())
		Expect(IsCommand("serve")).To(BeFalse())
	})
})
