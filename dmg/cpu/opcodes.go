package cpu

import "github.com/arledge/dmgo/dmg/bit"

// initPrimaryOpcodes builds the 256-entry base opcode table. The four
// maximally regular blocks of the LR35902 encoding (8-bit LD r,r'; ALU A,r;
// INC/DEC r; LD r,d8) are generated from r8Table, since the hardware itself
// encodes them as "same operation, different register field". The other
// regular rows (16-bit register-pair ops, PUSH/POP, conditional JR/JP/CALL/RET,
// RST) are likewise generated in loops over rpTable, rp2Table and ccTable;
// everything else is its own named function, matching the instruction set's
// actual irregularity.
func initPrimaryOpcodes() {
	opcodeTable[0x00] = opNOP
	opcodeTable[0x10] = opSTOP
	opcodeTable[0x76] = opHALT

	// LD r,r' — 0x40-0x7F, 64 opcodes, except 0x76 (HALT) above.
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			op := uint8(0x40 + dst*8 + src)
			if op == 0x76 {
				continue
			}
			d, s := r8Table[dst], r8Table[src]
			cycles := 4
			if dst == 6 || src == 6 {
				cycles = 8
			}
			opcodeTable[op] = func(c *CPU) int {
				d.set(c, s.get(c))
				return cycles
			}
		}
	}

	// ALU A,r — 0x80-0xBF, 8 operations x 8 registers.
	aluOps := [8]func(c *CPU, v uint8){
		func(c *CPU, v uint8) { c.addToA(v, false) },
		func(c *CPU, v uint8) { c.addToA(v, true) },
		func(c *CPU, v uint8) { c.subFromA(v, false) },
		func(c *CPU, v uint8) { c.subFromA(v, true) },
		func(c *CPU, v uint8) { c.and(v) },
		func(c *CPU, v uint8) { c.xor(v) },
		func(c *CPU, v uint8) { c.or(v) },
		func(c *CPU, v uint8) { c.cp(v) },
	}
	for opIdx := 0; opIdx < 8; opIdx++ {
		for reg := 0; reg < 8; reg++ {
			op := uint8(0x80 + opIdx*8 + reg)
			fn := aluOps[opIdx]
			src := r8Table[reg]
			cycles := 4
			if reg == 6 {
				cycles = 8
			}
			opcodeTable[op] = func(c *CPU) int {
				fn(c, src.get(c))
				return cycles
			}
		}
	}

	// INC r / DEC r — column of the 0x04,0x0C,0x14... / 0x05,0x0D,0x15... opcodes.
	for reg := 0; reg < 8; reg++ {
		reg := reg
		acc := r8Table[reg]
		incOp := uint8(0x04 + reg*8)
		decOp := uint8(0x05 + reg*8)
		if reg == 6 {
			opcodeTable[incOp] = func(c *CPU) int { c.incHL(); return 12 }
			opcodeTable[decOp] = func(c *CPU) int { c.decHL(); return 12 }
			continue
		}
		opcodeTable[incOp] = func(c *CPU) int {
			v := acc.get(c)
			c.inc(&v)
			acc.set(c, v)
			return 4
		}
		opcodeTable[decOp] = func(c *CPU) int {
			v := acc.get(c)
			c.dec(&v)
			acc.set(c, v)
			return 4
		}
	}

	// LD r,d8 — 0x06,0x0E,0x16...
	for reg := 0; reg < 8; reg++ {
		acc := r8Table[reg]
		op := uint8(0x06 + reg*8)
		cycles := 8
		if reg == 6 {
			cycles = 12
		}
		opcodeTable[op] = func(c *CPU) int {
			acc.set(c, c.readImmediate())
			return cycles
		}
	}

	// LD rr,d16 / ADD HL,rr / INC rr / DEC rr — 0x01/0x09/0x03/0x0B per row.
	for row := 0; row < 4; row++ {
		rp := rpTable[row]
		ldOp := uint8(0x01 + row*0x10)
		addOp := uint8(0x09 + row*0x10)
		incOp := uint8(0x03 + row*0x10)
		decOp := uint8(0x0B + row*0x10)
		opcodeTable[ldOp] = func(c *CPU) int { rp.set(c, c.readImmediateWord()); return 12 }
		opcodeTable[addOp] = func(c *CPU) int { c.addToHL(rp.get(c)); return 8 }
		opcodeTable[incOp] = func(c *CPU) int { rp.set(c, rp.get(c)+1); return 8 }
		opcodeTable[decOp] = func(c *CPU) int { rp.set(c, rp.get(c)-1); return 8 }
	}

	// PUSH rr / POP rr — 0xC1/0xD1/0xE1/0xF1 and 0xC5/0xD5/0xE5/0xF5.
	for row := 0; row < 4; row++ {
		rp := rp2Table[row]
		popOp := uint8(0xC1 + row*0x10)
		pushOp := uint8(0xC5 + row*0x10)
		opcodeTable[popOp] = func(c *CPU) int { rp.set(c, c.popStack()); return 12 }
		opcodeTable[pushOp] = func(c *CPU) int { c.pushStack(rp.get(c)); return 16 }
	}

	// RST n — 0xC7,CF,D7,DF,E7,EF,F7,FF.
	for i := 0; i < 8; i++ {
		vector := uint16(i * 8)
		op := uint8(0xC7 + i*8)
		opcodeTable[op] = func(c *CPU) int {
			c.pushStack(c.pc)
			c.pc = vector
			return 16
		}
	}

	// JR cc,r8 / JP cc,a16 / CALL cc,a16 / RET cc — condition rows 0-3.
	for row := 0; row < 4; row++ {
		cond := ccTable[row]
		jrOp := uint8(0x20 + row*8)
		jpOp := uint8(0xC2 + row*8)
		callOp := uint8(0xC4 + row*8)
		retOp := uint8(0xC0 + row*8)
		opcodeTable[jrOp] = func(c *CPU) int {
			offset := int8(c.readImmediate())
			if cond(c) {
				c.pc = uint16(int32(c.pc) + int32(offset))
				return 12
			}
			return 8
		}
		opcodeTable[jpOp] = func(c *CPU) int {
			target := c.readImmediateWord()
			if cond(c) {
				c.pc = target
				return 16
			}
			return 12
		}
		opcodeTable[callOp] = func(c *CPU) int {
			target := c.readImmediateWord()
			if cond(c) {
				c.pushStack(c.pc)
				c.pc = target
				return 24
			}
			return 12
		}
		opcodeTable[retOp] = func(c *CPU) int {
			if cond(c) {
				c.pc = c.popStack()
				return 20
			}
			return 8
		}
	}

	initMiscOpcodes()
}

func opNOP(c *CPU) int { return 4 }

func opHALT(c *CPU) int {
	c.halted = true
	return 4
}

// opSTOP halts the CPU until a joypad press wakes it. The timer and the DIV
// divider are not stopped; they keep counting while the CPU is stopped. Real hardware reads a throwaway byte after
// STOP; we model only the documented effect.
func opSTOP(c *CPU) int {
	c.readImmediate()
	c.stopped = true
	return 4
}

func initMiscOpcodes() {
	opcodeTable[0x02] = func(c *CPU) int { c.bus.Write(c.getBC(), c.a); return 8 }
	opcodeTable[0x12] = func(c *CPU) int { c.bus.Write(c.getDE(), c.a); return 8 }
	opcodeTable[0x0A] = func(c *CPU) int { c.a = c.bus.Read(c.getBC()); return 8 }
	opcodeTable[0x1A] = func(c *CPU) int { c.a = c.bus.Read(c.getDE()); return 8 }

	opcodeTable[0x22] = func(c *CPU) int { // LD (HL+),A
		c.bus.Write(c.getHL(), c.a)
		c.setHL(c.getHL() + 1)
		return 8
	}
	opcodeTable[0x32] = func(c *CPU) int { // LD (HL-),A
		c.bus.Write(c.getHL(), c.a)
		c.setHL(c.getHL() - 1)
		return 8
	}
	opcodeTable[0x2A] = func(c *CPU) int { // LD A,(HL+)
		c.a = c.bus.Read(c.getHL())
		c.setHL(c.getHL() + 1)
		return 8
	}
	opcodeTable[0x3A] = func(c *CPU) int { // LD A,(HL-)
		c.a = c.bus.Read(c.getHL())
		c.setHL(c.getHL() - 1)
		return 8
	}

	opcodeTable[0x07] = func(c *CPU) int { c.a = c.rlc(c.a, false); return 4 } // RLCA
	opcodeTable[0x0F] = func(c *CPU) int { c.a = c.rrc(c.a, false); return 4 } // RRCA
	opcodeTable[0x17] = func(c *CPU) int { c.a = c.rl(c.a, false); return 4 }  // RLA
	opcodeTable[0x1F] = func(c *CPU) int { c.a = c.rr(c.a, false); return 4 }  // RRA

	opcodeTable[0x08] = func(c *CPU) int { // LD (a16),SP
		address := c.readImmediateWord()
		c.bus.Write(address, bit.Low(c.sp))
		c.bus.Write(address+1, bit.High(c.sp))
		return 20
	}

	opcodeTable[0x18] = func(c *CPU) int { // JR r8 (unconditional)
		offset := int8(c.readImmediate())
		c.pc = uint16(int32(c.pc) + int32(offset))
		return 12
	}

	opcodeTable[0x27] = func(c *CPU) int { c.daa(); return 4 } // DAA
	opcodeTable[0x2F] = func(c *CPU) int { // CPL
		c.a = ^c.a
		c.setFlag(FlagN)
		c.setFlag(FlagH)
		return 4
	}
	opcodeTable[0x37] = func(c *CPU) int { // SCF
		c.resetFlag(FlagN)
		c.resetFlag(FlagH)
		c.setFlag(FlagC)
		return 4
	}
	opcodeTable[0x3F] = func(c *CPU) int { // CCF
		c.resetFlag(FlagN)
		c.resetFlag(FlagH)
		c.setFlagToCondition(FlagC, !c.isSetFlag(FlagC))
		return 4
	}

	opcodeTable[0xC3] = func(c *CPU) int { c.pc = c.readImmediateWord(); return 16 }  // JP a16
	opcodeTable[0xCD] = func(c *CPU) int { // CALL a16
		target := c.readImmediateWord()
		c.pushStack(c.pc)
		c.pc = target
		return 24
	}
	opcodeTable[0xC9] = func(c *CPU) int { c.pc = c.popStack(); return 16 }         // RET
	opcodeTable[0xD9] = func(c *CPU) int { c.pc = c.popStack(); c.ime = true; return 16 } // RETI
	opcodeTable[0xE9] = func(c *CPU) int { c.pc = c.getHL(); return 4 }            // JP (HL)

	opcodeTable[0xC6] = func(c *CPU) int { c.addToA(c.readImmediate(), false); return 8 } // ADD A,d8
	opcodeTable[0xCE] = func(c *CPU) int { c.addToA(c.readImmediate(), true); return 8 }  // ADC A,d8
	opcodeTable[0xD6] = func(c *CPU) int { c.subFromA(c.readImmediate(), false); return 8 } // SUB d8
	opcodeTable[0xDE] = func(c *CPU) int { c.subFromA(c.readImmediate(), true); return 8 }  // SBC A,d8
	opcodeTable[0xE6] = func(c *CPU) int { c.and(c.readImmediate()); return 8 }  // AND d8
	opcodeTable[0xEE] = func(c *CPU) int { c.xor(c.readImmediate()); return 8 } // XOR d8
	opcodeTable[0xF6] = func(c *CPU) int { c.or(c.readImmediate()); return 8 }  // OR d8
	opcodeTable[0xFE] = func(c *CPU) int { c.cp(c.readImmediate()); return 8 }  // CP d8

	opcodeTable[0xE0] = func(c *CPU) int { // LDH (a8),A
		c.bus.Write(0xFF00+uint16(c.readImmediate()), c.a)
		return 12
	}
	opcodeTable[0xF0] = func(c *CPU) int { // LDH A,(a8)
		c.a = c.bus.Read(0xFF00 + uint16(c.readImmediate()))
		return 12
	}
	opcodeTable[0xE2] = func(c *CPU) int { c.bus.Write(0xFF00+uint16(c.c), c.a); return 8 } // LD (C),A
	opcodeTable[0xF2] = func(c *CPU) int { c.a = c.bus.Read(0xFF00 + uint16(c.c)); return 8 } // LD A,(C)
	opcodeTable[0xEA] = func(c *CPU) int { c.bus.Write(c.readImmediateWord(), c.a); return 16 } // LD (a16),A
	opcodeTable[0xFA] = func(c *CPU) int { c.a = c.bus.Read(c.readImmediateWord()); return 16 } // LD A,(a16)

	opcodeTable[0xE8] = func(c *CPU) int { // ADD SP,r8
		c.sp = c.addSPSigned(int8(c.readImmediate()))
		return 16
	}
	opcodeTable[0xF8] = func(c *CPU) int { // LD HL,SP+r8
		c.setHL(c.addSPSigned(int8(c.readImmediate())))
		return 12
	}
	opcodeTable[0xF9] = func(c *CPU) int { c.sp = c.getHL(); return 8 } // LD SP,HL

	opcodeTable[0xF3] = func(c *CPU) int { c.ime = false; c.imePending = false; return 4 } // DI
	opcodeTable[0xFB] = func(c *CPU) int { c.imePending = true; return 4 }                 // EI
}
