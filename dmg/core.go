// Package dmg ties together the CPU, MMU, and PPU into a runnable Game Boy
// emulator: load a ROM, advance it instruction by instruction or a whole
// frame at a time, and read back its framebuffer and input state.
package dmg

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/arledge/dmgo/dmg/cpu"
	"github.com/arledge/dmgo/dmg/memory"
	"github.com/arledge/dmgo/dmg/video"
)

// CyclesPerFrame is the number of T-cycles in one 59.7Hz DMG video frame
// (154 scanlines * 456 T-cycles).
const CyclesPerFrame = 70224

// Emulator is the root struct and entry point for running the emulation.
type Emulator struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	instructionCount uint64
	frameCount       uint64
}

func (e *Emulator) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.gpu = video.NewGpu(mem)
	e.mem = mem
}

// New creates an emulator with no cartridge loaded.
func New() *Emulator {
	e := &Emulator{}
	mmu, err := memory.NewWithCartridge(memory.NewCartridge())
	if err != nil {
		// An empty cartridge is always NoMBC; this cannot fail.
		panic(err)
	}
	e.init(mmu)
	return e
}

// NewWithFile loads the ROM at path and returns a ready-to-run emulator.
func NewWithFile(path string) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rom: %w", err)
	}

	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, err
	}

	slog.Info("loaded cartridge", "title", cart.Title(), "size", len(data))

	mmu, err := memory.NewWithCartridge(cart)
	if err != nil {
		return nil, err
	}

	e := &Emulator{}
	e.init(mmu)
	return e, nil
}

// SetTickMode selects how finely the CPU reports elapsed cycles per Step.
func (e *Emulator) SetTickMode(mode cpu.TickMode) {
	e.cpu.SetTickMode(mode)
}

// Step executes one CPU instruction (or interrupt dispatch, or idle HALT/
// STOP tick) and advances every subordinate component by the same number of
// T-cycles, in the order real hardware updates them: CPU first, then the
// timer and serial port, then the PPU.
func (e *Emulator) Step() int {
	cycles := e.cpu.Step()
	e.mem.Tick(cycles)
	e.gpu.Tick(cycles)
	e.instructionCount++
	return cycles
}

// RunUntilFrame steps the emulator until a full video frame (70224 T-cycles)
// has elapsed, then returns.
func (e *Emulator) RunUntilFrame() {
	total := 0
	for total < CyclesPerFrame {
		total += e.Step()
	}
	e.frameCount++
	if e.frameCount%60 == 0 {
		slog.Debug("frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.PC()))
	}
}

// GetCurrentFrame returns the PPU's current framebuffer.
func (e *Emulator) GetCurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

// HandleKeyPress notifies the joypad that key is now held down.
func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

// HandleKeyRelease notifies the joypad that key has been released.
func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

// GetCPU exposes the CPU for debugging/disassembly tools.
func (e *Emulator) GetCPU() *cpu.CPU {
	return e.cpu
}

// GetMMU exposes the MMU for debugging tools and save-data access.
func (e *Emulator) GetMMU() *memory.MMU {
	return e.mem
}

// InstructionCount returns the number of CPU steps executed so far.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// FrameCount returns the number of video frames completed so far.
func (e *Emulator) FrameCount() uint64 {
	return e.frameCount
}
