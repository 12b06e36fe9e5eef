package vm

import "github.com/sarchlab/ptsim/sim"

// Hook positions of the Engine. The HookCtx.Item is a ProcessEvent for
// HookPosNewProcess and HookPosKillProcess, an Access for HookPosStore and
// HookPosLoad, and the error for HookPosOutOfMemory and HookPosPageFault.
var (
	HookPosNewProcess  = &sim.HookPos{Name: "NewProcess"}
	HookPosKillProcess = &sim.HookPos{Name: "KillProcess"}
	HookPosStore       = &sim.HookPos{Name: "Store"}
	HookPosLoad        = &sim.HookPos{Name: "Load"}
	HookPosOutOfMemory = &sim.HookPos{Name: "OutOfMemory"}
	HookPosPageFault   = &sim.HookPos{Name: "PageFault"}
)
