package memory

import (
	"fmt"
	"log/slog"

	"github.com/arledge/dmgo/dmg/addr"
	"github.com/arledge/dmgo/dmg/audio"
	"github.com/arledge/dmgo/dmg/bit"
	"github.com/arledge/dmgo/dmg/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
	regionHRAM
)

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	regionMap [256]memRegion

	joypadButtons uint8 // Actual state of buttons A/B/Start/Select, mapped to low bits of P1
	joypadDpad    uint8 // Actual state of d-pad directions, mapped to low bits of P1

	serial SerialPort
	timer  Timer

	dmaCyclesRemaining int // >0 while an OAM DMA transfer owns the bus
}

// New creates a new memory unity with default data, i.e. nothing cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory:        make([]byte, 0x10000),
		cart:          NewCartridge(),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	initRegionMap(mmu)
	return mmu
}

// dmaBusyTCycles is how long an OAM DMA transfer holds the bus: 160 machine
// cycles (4 T-cycles each).
const dmaBusyTCycles = 160 * 4

// Tick advances any i/o that needs it, if any.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	if m.dmaCyclesRemaining > 0 {
		m.dmaCyclesRemaining -= cycles
	}
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// BatteryBackedRAM returns the cartridge's battery-backed external RAM
// interface, if its MBC has one with a battery actually present on the
// cartridge.
func (m *MMU) BatteryBackedRAM() (BatteryBacked, bool) {
	if !m.cart.hasBattery {
		return nil, false
	}
	b, ok := m.mbc.(BatteryBacked)
	return b, ok
}

// NewWithCartridge creates a new memory unit with the provided cartridge data
// loaded. Equivalent to turning on a Gameboy with a cartridge in. Only
// NoMBC and MBC1 cartridges are supported; MBC2/MBC3/MBC5 carts are
// recognized by the header parser but rejected here (see DESIGN.md).
func NewWithCartridge(cart *Cartridge) (*MMU, error) {
	mmu := New()
	mmu.cart = cart

	switch cart.mbcType {
	case NoMBCType:
		mmu.mbc = NewNoMBC(cart.data)
	case MBC1Type, MBC1MultiType:
		mmu.mbc = NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount, cart.romBankCount)
	default:
		return nil, fmt.Errorf("unsupported memory bank controller for cartridge %q (type 0x%02X)", cart.title, cart.cartType)
	}

	return mmu, nil
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, Unused: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
// This is the hardware itself (timer, PPU, serial, joypad) raising its own
// flag, not a CPU bus access, so it bypasses the OAM DMA busy lock via
// ReadRegister/WriteRegister: an in-flight DMA must never swallow an
// interrupt request.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	interruptFlags := m.ReadRegister(addr.IF)

	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		panic(fmt.Sprintf("Unknown interrupt: 0x%02X", uint8(interrupt)))
	}

	newFlags := bit.Set(bitPos, interruptFlags) | 0xE0

	m.WriteRegister(addr.IF, newFlags)
}

// ppuMode returns the PPU mode currently latched in STAT bits 1-0 (the GPU
// keeps this register up to date on every mode transition).
func (m *MMU) ppuMode() uint8 {
	return m.memory[addr.STAT] & 0x03
}

// ReadVRAM and ReadOAM are the PPU's own access paths into VRAM/OAM: unlike
// Read, they never apply the CPU-side lock, since the PPU itself is the one
// holding it.
func (m *MMU) ReadVRAM(address uint16) byte { return m.memory[address] }
func (m *MMU) ReadOAM(address uint16) byte  { return m.memory[address] }

// ReadRegister and WriteRegister are the PPU's own access path to its
// control/scroll/palette registers (LCDC, STAT, SCX/SCY, LY/LYC, BGP,
// OBP0/OBP1, WX/WY). OAM DMA only blocks the CPU from touching the bus, not
// the PPU itself, so these bypass both the DMA busy flag and the VRAM/OAM
// lock that Read/Write enforce against the CPU.
func (m *MMU) ReadRegister(address uint16) byte         { return m.memory[address] }
func (m *MMU) WriteRegister(address uint16, value byte) { m.memory[address] = value }

// dmaBusy reports whether an OAM DMA transfer currently owns the bus. While
// busy, the CPU can only see HRAM; every other address reads 0xFF. IF is
// exempt: it is serviced by the interrupt controller, not fetched over the
// bus DMA arbitrates, so an in-flight transfer must never hide a pending
// interrupt from dispatch.
func (m *MMU) dmaBusy(address uint16) bool {
	return m.dmaCyclesRemaining > 0 && address < 0xFF80 && address != addr.IF
}

func (m *MMU) Read(address uint16) byte {
	if m.dmaBusy(address) {
		return 0xFF
	}

	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Reading from ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM:
		// Mode 3 (pixel transfer): the PPU owns the VRAM bus, CPU reads see 0xFF.
		if m.ppuMode() == 3 {
			return 0xFF
		}
		return m.memory[address]
	case regionWRAM:
		return m.memory[address]
	case regionEcho:
		if address <= 0xFDFF {
			return m.memory[address-0x2000]
		}
		return m.memory[address-0x2000]
	case regionOAM:
		if address > 0xFE9F {
			// Unused area 0xFEA0-0xFEFF always reads 0xFF.
			return 0xFF
		}
		// Modes 2 (OAM scan) and 3 (pixel transfer): the PPU owns OAM.
		if mode := m.ppuMode(); mode == 2 || mode == 3 {
			return 0xFF
		}
		return m.memory[address]
	case regionIO:
		if address == addr.SB || address == addr.SC {
			return m.serial.Read(address)
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			return m.timer.Read(address)
		}
		if address >= 0xFF10 && address <= 0xFF3F {
			return m.APU.ReadRegister(address)
		}
		// Just in case, we always read the upper 3 bits of IF as 1.
		// They're not used, but have caused me some headaches when checking for
		// when the halt bug triggers (IF != 0).
		if address == addr.IF {
			return m.memory[address] | 0xE0
		}
		if address >= 0xFF80 {
			// HRAM
			return m.memory[address]
		}
		// Other IO registers
		return m.memory[address]
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) Write(address uint16, value byte) {
	if m.dmaBusy(address) {
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc == nil {
			slog.Warn("Writing to ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM:
		if m.ppuMode() == 3 {
			return
		}
		m.memory[address] = value
	case regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Writing to external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionWRAM:
		m.memory[address] = value
	case regionEcho:
		if address <= 0xFDFF {
			m.memory[address-0x2000] = value
		}
	case regionOAM:
		if address > 0xFE9F {
			// Unused area 0xFEA0-0xFEFF: writes are discarded.
			return
		}
		if mode := m.ppuMode(); mode == 2 || mode == 3 {
			return
		}
		m.memory[address] = value
	case regionIO:
		if address == addr.P1 {
			m.writeJoypad(value)
			return
		}
		if address == addr.SB || address == addr.SC {
			m.serial.Write(address, value)
			return
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			m.timer.Write(address, value)
			return
		}
		if address >= 0xFF10 && address <= 0xFF3F {
			m.APU.WriteRegister(address, value)
			return
		}
		if address == addr.IF {
			// This goddamn register has its upper 3 bits always set as 1...
			// Beware if you're trying to match halt bug behavior.
			m.memory[address] = value | 0xE0
			return
		}
		if address == addr.DMA {
			sourceAddr := uint16(value) << 8
			// The copy itself happens instantly; the busy flag set below is
			// what actually reproduces the CPU-can't-touch-the-bus behavior
			// for the remainder of the real 160 M-cycle transfer.
			for i := range uint16(160) {
				m.memory[0xFE00+i] = m.Read(sourceAddr + i)
			}
			m.memory[address] = value
			m.dmaCyclesRemaining = dmaBusyTCycles
			return
		}
		if address >= 0xFF80 {
			// HRAM
			m.memory[address] = value
			return
		}
		// Other IO registers
		m.memory[address] = value
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

// updateJoypadRegister sets the joypad register (P1) according to selection bits
// and hardware (buttons) status.
//
// In real hw, this register is actually just a selector (bits 4-5) that control
// to which set of buttons the low bits (0-3) are mapped to. The selector bits
// are active-low.
//
// The mapping:
//   - if bit 4 is clear, bits 0-3 are mapped to the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 are mapped to A, B, Start, Select
//   - if both are clear, hw does an AND of both button sets
//   - if both are set, return 0x0F (high impedence state)
//
// This function is called whenever:
//   - there is a write to the P1 register (only set bits 4-5)
//   - a button is pressed or released (tracked separately)
//
// Note that 1 -> button released, 0 -> button pressed.
// Bits 6-7 are unused, they always read as 1 on real hardware.
func (m *MMU) updateJoypadRegister() {
	p1 := m.memory[addr.P1]
	result := uint8(0b11000000) // Bits 6-7 are always read as 1
	result |= p1 & 0b00110000   // Keep selection bits 4-5

	// A button group is selected if the corresponding bit is 0
	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		// no selection
		result |= 0x0F
	}

	m.memory[addr.P1] = result
}

func (m *MMU) writeJoypad(value uint8) {
	// Only bits 4-5 are writable (selection bits)
	m.memory[addr.P1] = value & 0b00110000
	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyPress(key JoypadKey) {
	// The IRQ only fires on the transition out of "nothing at all held down"
	// (across both groups, not just the group this key belongs to), and only
	// if a group is actually selected on P1 to observe it. Pressing a second
	// button while a first is still held must not re-raise it.
	wasIdle := m.joypadButtons == 0x0F && m.joypadDpad == 0x0F

	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Reset(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Reset(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Reset(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Reset(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Reset(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Reset(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Reset(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Reset(3, m.joypadButtons)
	}

	if wasIdle {
		p1 := m.memory[addr.P1]
		groupSelected := !bit.IsSet(4, p1) || !bit.IsSet(5, p1)
		if groupSelected {
			m.RequestInterrupt(addr.JoypadInterrupt)
		}
	}

	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyRelease(key JoypadKey) {
	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Set(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Set(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Set(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Set(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Set(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Set(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Set(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Set(3, m.joypadButtons)
	}

	m.updateJoypadRegister()
}
