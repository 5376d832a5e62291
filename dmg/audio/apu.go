// Package audio models the DMG APU register file (NR10-NR52, wave RAM).
// Sample generation and mixing are out of scope: this package exists so the
// rest of the machine has somewhere to read and write sound registers
// without those addresses falling through to open bus.
package audio

import "github.com/arledge/dmgo/dmg/addr"

const waveRAMSize = 16

// APU holds the raw contents of the sound registers. Writes are accepted
// and read back verbatim, except NR52 bit 7 (the master audio-on switch)
// which gates whether the rest of the register file is writable, matching
// real hardware: turning sound off clears and locks NR10-NR51.
type APU struct {
	enabled bool

	nr10, nr11, nr12, nr13, nr14 uint8
	nr21, nr22, nr23, nr24       uint8
	nr30, nr31, nr32, nr33, nr34 uint8
	nr41, nr42, nr43, nr44       uint8
	nr50, nr51, nr52             uint8
	waveRAM                     [waveRAMSize]uint8
}

// New creates an APU with all registers zeroed, as on power-on.
func New() *APU {
	return &APU{}
}

// ReadRegister reads one of the NR10-NR52 registers or a wave RAM byte.
// Unused register bits read back as 1, per the documented register layout.
func (a *APU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.NR10:
		return a.nr10 | 0x80
	case addr.NR11:
		return a.nr11 | 0x3F
	case addr.NR12:
		return a.nr12
	case addr.NR13:
		return 0xFF
	case addr.NR14:
		return a.nr14 | 0xBF
	case addr.NR21:
		return a.nr21 | 0x3F
	case addr.NR22:
		return a.nr22
	case addr.NR23:
		return 0xFF
	case addr.NR24:
		return a.nr24 | 0xBF
	case addr.NR30:
		return a.nr30 | 0x7F
	case addr.NR31:
		return 0xFF
	case addr.NR32:
		return a.nr32 | 0x9F
	case addr.NR33:
		return 0xFF
	case addr.NR34:
		return a.nr34 | 0xBF
	case addr.NR41:
		return 0xFF
	case addr.NR42:
		return a.nr42
	case addr.NR43:
		return a.nr43
	case addr.NR44:
		return a.nr44 | 0xBF
	case addr.NR50:
		return a.nr50
	case addr.NR51:
		return a.nr51
	case addr.NR52:
		return a.nr52 | 0x70
	}
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		return a.waveRAM[address-addr.WaveRAMStart]
	}
	return 0xFF
}

// WriteRegister writes one of the NR10-NR52 registers or a wave RAM byte.
// When the APU is powered off (NR52 bit 7 clear), writes to every register
// except NR52 itself and wave RAM are ignored.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		a.waveRAM[address-addr.WaveRAMStart] = value
		return
	}

	if address == addr.NR52 {
		a.enabled = value&0x80 != 0
		a.nr52 = value & 0x80
		if !a.enabled {
			a.powerOffClear()
		}
		return
	}

	if !a.enabled {
		return
	}

	switch address {
	case addr.NR10:
		a.nr10 = value
	case addr.NR11:
		a.nr11 = value
	case addr.NR12:
		a.nr12 = value
	case addr.NR13:
		a.nr13 = value
	case addr.NR14:
		a.nr14 = value
	case addr.NR21:
		a.nr21 = value
	case addr.NR22:
		a.nr22 = value
	case addr.NR23:
		a.nr23 = value
	case addr.NR24:
		a.nr24 = value
	case addr.NR30:
		a.nr30 = value
	case addr.NR31:
		a.nr31 = value
	case addr.NR32:
		a.nr32 = value
	case addr.NR33:
		a.nr33 = value
	case addr.NR34:
		a.nr34 = value
	case addr.NR41:
		a.nr41 = value
	case addr.NR42:
		a.nr42 = value
	case addr.NR43:
		a.nr43 = value
	case addr.NR44:
		a.nr44 = value
	case addr.NR50:
		a.nr50 = value
	case addr.NR51:
		a.nr51 = value
	}
}

func (a *APU) powerOffClear() {
	a.nr10, a.nr11, a.nr12, a.nr13, a.nr14 = 0, 0, 0, 0, 0
	a.nr21, a.nr22, a.nr23, a.nr24 = 0, 0, 0, 0
	a.nr30, a.nr31, a.nr32, a.nr33, a.nr34 = 0, 0, 0, 0, 0
	a.nr41, a.nr42, a.nr43, a.nr44 = 0, 0, 0, 0
	a.nr50, a.nr51 = 0, 0
}
