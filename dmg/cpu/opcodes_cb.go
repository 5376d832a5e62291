package cpu

// initCBOpcodes builds the CB-prefixed table: eight rotate/shift ops over
// the eight r8 slots (0x00-0x3F), then BIT/RES/SET crossed with the same
// eight slots and the eight bit indices (0x40-0xFF). The (HL) slot costs
// more cycles than a plain register because it round-trips through memory.
func initCBOpcodes() {
	shiftOps := [8]func(c *CPU, v uint8) uint8{
		func(c *CPU, v uint8) uint8 { return c.rlc(v, true) },
		func(c *CPU, v uint8) uint8 { return c.rrc(v, true) },
		func(c *CPU, v uint8) uint8 { return c.rl(v, true) },
		func(c *CPU, v uint8) uint8 { return c.rr(v, true) },
		func(c *CPU, v uint8) uint8 { return c.sla(v) },
		func(c *CPU, v uint8) uint8 { return c.sra(v) },
		func(c *CPU, v uint8) uint8 { return c.swap(v) },
		func(c *CPU, v uint8) uint8 { return c.srl(v) },
	}
	for opIdx := 0; opIdx < 8; opIdx++ {
		for reg := 0; reg < 8; reg++ {
			op := uint8(opIdx*8 + reg)
			fn := shiftOps[opIdx]
			slot := r8Table[reg]
			cycles := 8
			if reg == 6 {
				cycles = 16
			}
			cbOpcodeTable[op] = func(c *CPU) int {
				slot.set(c, fn(c, slot.get(c)))
				return cycles
			}
		}
	}

	// BIT b,r — 0x40-0x7F.
	for bitIdx := 0; bitIdx < 8; bitIdx++ {
		for reg := 0; reg < 8; reg++ {
			op := uint8(0x40 + bitIdx*8 + reg)
			b := uint8(bitIdx)
			slot := r8Table[reg]
			cycles := 8
			if reg == 6 {
				cycles = 12
			}
			cbOpcodeTable[op] = func(c *CPU) int {
				c.bitTest(b, slot.get(c))
				return cycles
			}
		}
	}

	// RES b,r — 0x80-0xBF.
	for bitIdx := 0; bitIdx < 8; bitIdx++ {
		for reg := 0; reg < 8; reg++ {
			op := uint8(0x80 + bitIdx*8 + reg)
			b := uint8(bitIdx)
			slot := r8Table[reg]
			cycles := 8
			if reg == 6 {
				cycles = 16
			}
			cbOpcodeTable[op] = func(c *CPU) int {
				slot.set(c, resetBit(b, slot.get(c)))
				return cycles
			}
		}
	}

	// SET b,r — 0xC0-0xFF.
	for bitIdx := 0; bitIdx < 8; bitIdx++ {
		for reg := 0; reg < 8; reg++ {
			op := uint8(0xC0 + bitIdx*8 + reg)
			b := uint8(bitIdx)
			slot := r8Table[reg]
			cycles := 8
			if reg == 6 {
				cycles = 16
			}
			cbOpcodeTable[op] = func(c *CPU) int {
				slot.set(c, setBit(b, slot.get(c)))
				return cycles
			}
		}
	}
}
