package vm

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ptsim/mem"
	"github.com/sarchlab/ptsim/sim"
)

func allocatedPages(e *Engine) []int {
	pages := []int{}
	for page, allocated := range e.AllocationMap() {
		if allocated {
			pages = append(pages, page)
		}
	}

	return pages
}

func pageRange(from, to int) []int {
	pages := []int{}
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}

	return pages
}

var _ = Describe("Engine", func() {
	var (
		engine *Engine
	)

	BeforeEach(func() {
		engine = MakeBuilder().Build()
	})

	AfterEach(func() {
		engine.Close()
	})

	Context("initialize", func() {
		It("should only allocate page 0", func() {
			Expect(allocatedPages(engine)).To(Equal([]int{0}))
			Expect(engine.Stats().AllocatedPages).To(Equal(1))
			Expect(engine.Stats().FreePages).To(Equal(mem.PageCount - 1))
		})

		It("should zero the memory again on re-initialization", func() {
			Expect(engine.NewProcess(1, 2)).To(Succeed())
			_, err := engine.Store(1, 0, 5)
			Expect(err).ToNot(HaveOccurred())

			engine.Init()

			Expect(allocatedPages(engine)).To(Equal([]int{0}))
			Expect(engine.PageTable(1)).To(Equal(0))
			Expect(engine.Storage().Byte(mem.Address(2, 0))).To(Equal(byte(0)))
		})

		It("should panic if the storage has the wrong size", func() {
			Expect(func() {
				MakeBuilder().WithStorage(mem.NewStorage(100)).Build()
			}).To(Panic())
		})
	})

	Context("allocate process", func() {
		It("should allocate first fit", func() {
			Expect(engine.NewProcess(1, 3)).To(Succeed())

			Expect(engine.PageTable(1)).To(Equal(1))
			Expect(allocatedPages(engine)).To(Equal([]int{0, 1, 2, 3, 4}))
			Expect(engine.Mappings(1)).To(Equal([]Mapping{
				{VPage: 0, PPage: 2},
				{VPage: 1, PPage: 3},
				{VPage: 2, PPage: 4},
			}))
		})

		It("should continue after existing processes", func() {
			Expect(engine.NewProcess(1, 3)).To(Succeed())
			Expect(engine.NewProcess(2, 2)).To(Succeed())

			Expect(engine.PageTable(2)).To(Equal(5))
			Expect(engine.Mappings(2)).To(Equal([]Mapping{
				{VPage: 0, PPage: 6},
				{VPage: 1, PPage: 7},
			}))
		})

		It("should only allocate the page table for zero pages", func() {
			Expect(engine.NewProcess(4, 0)).To(Succeed())

			Expect(engine.PageTable(4)).To(Equal(1))
			Expect(allocatedPages(engine)).To(Equal([]int{0, 1}))
			Expect(engine.Mappings(4)).To(BeEmpty())
		})

		It("should report data page exhaustion and keep partial pages", func() {
			err := engine.NewProcess(1, mem.PageCount-1)

			var oom *OutOfMemoryError
			Expect(errors.As(err, &oom)).To(BeTrue())
			Expect(oom.PID).To(Equal(1))
			Expect(oom.Resource).To(Equal(DataPageResource))
			Expect(err).To(MatchError("OOM: proc 1: data page"))

			Expect(allocatedPages(engine)).To(Equal(pageRange(0, 63)))
			Expect(engine.Mappings(1)).To(HaveLen(mem.PageCount - 2))
		})

		It("should leave a small pool fully allocated on exhaustion", func() {
			Expect(engine.NewProcess(1, 60)).To(Succeed())
			Expect(engine.Stats().FreePages).To(Equal(2))

			err := engine.NewProcess(2, 5)

			Expect(err).To(MatchError("OOM: proc 2: data page"))
			Expect(engine.PageTable(2)).To(Equal(62))
			Expect(engine.Mappings(2)).To(Equal([]Mapping{
				{VPage: 0, PPage: 63},
			}))
			Expect(engine.Stats().FreePages).To(Equal(0))
		})

		It("should report page table exhaustion", func() {
			_ = engine.NewProcess(1, mem.PageCount)

			err := engine.NewProcess(3, 0)

			var oom *OutOfMemoryError
			Expect(errors.As(err, &oom)).To(BeTrue())
			Expect(oom.Resource).To(Equal(PageTableResource))
			Expect(err).To(MatchError("OOM: proc 3: page table"))
			Expect(engine.PageTable(3)).To(Equal(0))
		})
	})

	Context("kill process", func() {
		It("should free data pages and the page table page", func() {
			Expect(engine.NewProcess(1, 3)).To(Succeed())
			Expect(engine.NewProcess(2, 2)).To(Succeed())

			engine.KillProcess(1)

			Expect(allocatedPages(engine)).To(Equal([]int{0, 5, 6, 7}))
		})

		It("should leave the pointer table entry dangling", func() {
			Expect(engine.NewProcess(1, 1)).To(Succeed())

			engine.KillProcess(1)

			Expect(engine.PageTable(1)).To(Equal(1))
			Expect(engine.IsAllocated(1)).To(BeFalse())
		})

		It("should reuse freed pages first fit", func() {
			Expect(engine.NewProcess(1, 2)).To(Succeed())
			Expect(engine.NewProcess(2, 1)).To(Succeed())
			engine.KillProcess(1)

			Expect(engine.NewProcess(3, 3)).To(Succeed())

			Expect(engine.PageTable(3)).To(Equal(1))
			Expect(engine.Mappings(3)).To(Equal([]Mapping{
				{VPage: 0, PPage: 2},
				{VPage: 1, PPage: 3},
				{VPage: 2, PPage: 6},
			}))
		})

		It("should not affect pages that are already free", func() {
			Expect(engine.NewProcess(1, 2)).To(Succeed())
			Expect(engine.NewProcess(2, 1)).To(Succeed())
			engine.KillProcess(1)

			engine.KillProcess(1)

			Expect(allocatedPages(engine)).To(Equal([]int{0, 4, 5}))
		})

		It("should clear page 0 before scanning a missing page table", func() {
			Expect(engine.NewProcess(1, 4)).To(Succeed())

			// Process 9 has no page table, so the store lands on bitmap
			// byte 0 and names page 5.
			a, err := engine.Store(9, 6<<mem.PageShift, 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(a.PAddr).To(Equal(0))

			engine.KillProcess(9)

			Expect(allocatedPages(engine)).To(Equal(pageRange(2, 5)))
		})

		It("should never kill process 0", func() {
			Expect(engine.NewProcess(0, 1)).To(Succeed())

			engine.KillProcess(0)

			Expect(allocatedPages(engine)).To(Equal([]int{0, 1, 2}))
		})
	})

	Context("store and load", func() {
		BeforeEach(func() {
			Expect(engine.NewProcess(1, 2)).To(Succeed())
		})

		It("should translate through the page table", func() {
			paddr, err := engine.Translate(1, 0x105)

			Expect(err).ToNot(HaveOccurred())
			Expect(paddr).To(Equal(mem.Address(3, 5)))
		})

		It("should load what was stored", func() {
			stored, err := engine.Store(1, 0, 99)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored).To(Equal(Access{
				Kind: StoreAccess, PID: 1, VAddr: 0, PAddr: 512, Value: 99,
			}))

			loaded, err := engine.Load(1, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(Equal(Access{
				Kind: LoadAccess, PID: 1, VAddr: 0, PAddr: 512, Value: 99,
			}))
		})

		It("should truncate stored values to a byte", func() {
			stored, err := engine.Store(1, 0x105, 300)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Value).To(Equal(300))

			loaded, err := engine.Load(1, 0x105)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.Value).To(Equal(44))
			Expect(loaded.PAddr).To(Equal(773))
		})

		It("should alias unmapped pages onto page 0", func() {
			paddr, err := engine.Translate(1, 5<<mem.PageShift|10)
			Expect(err).ToNot(HaveOccurred())
			Expect(paddr).To(Equal(10))

			_, err = engine.Store(1, 5<<mem.PageShift|10, 7)
			Expect(err).ToNot(HaveOccurred())
			Expect(engine.IsAllocated(10)).To(BeTrue())
		})

		It("should use the bitmap as page table for unknown processes", func() {
			paddr, err := engine.Translate(9, 0x10)

			Expect(err).ToNot(HaveOccurred())
			Expect(paddr).To(Equal(mem.Address(1, 0x10)))
		})
	})

	Context("page fault on unmapped", func() {
		var strict *Engine

		BeforeEach(func() {
			strict = MakeBuilder().WithPageFaultOnUnmapped(true).Build()
			Expect(strict.NewProcess(1, 1)).To(Succeed())
		})

		It("should translate mapped pages", func() {
			_, err := strict.Store(1, 4, 8)
			Expect(err).ToNot(HaveOccurred())

			loaded, err := strict.Load(1, 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.Value).To(Equal(8))
		})

		It("should fault on unmapped virtual pages", func() {
			_, err := strict.Load(1, 256)

			var fault *PageFaultError
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(*fault).To(Equal(PageFaultError{PID: 1, VAddr: 256}))
			Expect(err).To(MatchError("PAGE FAULT: proc 1: vaddr 256"))
		})

		It("should fault on unknown processes without writing", func() {
			_, err := strict.Store(2, 0, 1)

			Expect(err).To(MatchError("PAGE FAULT: proc 2: vaddr 0"))
			Expect(allocatedPages(strict)).To(Equal([]int{0, 1, 2}))
		})
	})

	Context("hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
			ctxs     []sim.HookCtx
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			ctxs = nil
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx sim.HookCtx) { ctxs = append(ctxs, ctx) }).
				AnyTimes()
			engine.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report process events and accesses", func() {
			Expect(engine.NewProcess(1, 1)).To(Succeed())
			_, _ = engine.Store(1, 3, 4)
			_, _ = engine.Load(1, 3)
			engine.KillProcess(1)

			Expect(ctxs).To(HaveLen(4))
			Expect(ctxs[0].Pos).To(BeIdenticalTo(HookPosNewProcess))
			Expect(ctxs[0].Item).To(Equal(ProcessEvent{
				PID: 1, TablePage: 1, Pages: []int{2},
			}))
			Expect(ctxs[1].Pos).To(BeIdenticalTo(HookPosStore))
			Expect(ctxs[1].Item.(Access).PAddr).To(Equal(515))
			Expect(ctxs[2].Pos).To(BeIdenticalTo(HookPosLoad))
			Expect(ctxs[2].Item.(Access).Value).To(Equal(4))
			Expect(ctxs[3].Pos).To(BeIdenticalTo(HookPosKillProcess))
			Expect(ctxs[3].Item).To(Equal(ProcessEvent{
				PID: 1, TablePage: 1, Pages: []int{2},
			}))
			Expect(ctxs[3].Domain).To(BeIdenticalTo(engine))
		})

		It("should report out of memory exactly once", func() {
			_ = engine.NewProcess(1, 60)
			ctxs = nil

			_ = engine.NewProcess(2, 5)

			Expect(ctxs).To(HaveLen(1))
			Expect(ctxs[0].Pos).To(BeIdenticalTo(HookPosOutOfMemory))
			Expect(ctxs[0].Detail).To(Equal(ProcessEvent{
				PID: 2, TablePage: 62, Pages: []int{63},
			}))
		})
	})
})
