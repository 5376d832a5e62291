package cpu

import "github.com/arledge/dmgo/dmg/bit"

func (c *CPU) pushStack(v uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(v))
	c.sp--
	c.bus.Write(c.sp, bit.Low(v))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	halfCarry := (*r & 0xF) == 0xF
	*r++
	c.setFlagToCondition(FlagZ, *r == 0)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
}

func (c *CPU) dec(r *uint8) {
	halfCarry := (*r & 0xF) == 0
	*r--
	c.setFlagToCondition(FlagZ, *r == 0)
	c.setFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
}

func (c *CPU) incHL() {
	v := c.bus.Read(c.getHL())
	halfCarry := (v & 0xF) == 0xF
	v++
	c.bus.Write(c.getHL(), v)
	c.setFlagToCondition(FlagZ, v == 0)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
}

func (c *CPU) decHL() {
	v := c.bus.Read(c.getHL())
	halfCarry := (v & 0xF) == 0
	v--
	c.bus.Write(c.getHL(), v)
	c.setFlagToCondition(FlagZ, v == 0)
	c.setFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
}

// addToA adds value (plus carry, if withCarry) to A and sets all flags.
func (c *CPU) addToA(value uint8, withCarry bool) {
	var carryIn uint8
	if withCarry && c.isSetFlag(FlagC) {
		carryIn = 1
	}

	a := c.a
	result := uint16(a) + uint16(value) + uint16(carryIn)
	halfCarry := (a&0xF)+(value&0xF)+carryIn > 0xF

	c.a = uint8(result)
	c.setFlagToCondition(FlagZ, c.a == 0)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
	c.setFlagToCondition(FlagC, result > 0xFF)
}

// subFromA subtracts value (plus carry, if withCarry) from A and sets all flags.
func (c *CPU) subFromA(value uint8, withCarry bool) {
	var carryIn uint8
	if withCarry && c.isSetFlag(FlagC) {
		carryIn = 1
	}

	a := c.a
	result := int(a) - int(value) - int(carryIn)
	halfCarry := (int(a)&0xF)-(int(value)&0xF)-int(carryIn) < 0

	c.a = uint8(result)
	c.setFlagToCondition(FlagZ, c.a == 0)
	c.setFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
	c.setFlagToCondition(FlagC, result < 0)
}

// cp compares value against A (like subFromA but discards the result).
func (c *CPU) cp(value uint8) {
	a := c.a
	c.subFromA(value, false)
	c.a = a
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.setFlagToCondition(FlagZ, c.a == 0)
	c.resetFlag(FlagN)
	c.setFlag(FlagH)
	c.resetFlag(FlagC)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.setFlagToCondition(FlagZ, c.a == 0)
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.resetFlag(FlagC)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.setFlagToCondition(FlagZ, c.a == 0)
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.resetFlag(FlagC)
}

// addToHL adds a 16-bit register to HL; Z is unaffected.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(value)
	halfCarry := (hl&0xFFF)+(value&0xFFF) > 0xFFF

	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
	c.setFlagToCondition(FlagC, result > 0xFFFF)
	c.setHL(uint16(result))
}

// addSPSigned adds a signed 8-bit immediate to SP and returns the 16-bit
// result; flags are derived from the low-byte addition, used by both
// ADD SP,i8 and LD HL,SP+i8.
func (c *CPU) addSPSigned(offset int8) uint16 {
	sp := c.sp
	value := uint16(int32(offset))
	result := sp + value

	halfCarry := (sp&0xF)+(value&0xF) > 0xF
	carry := (sp&0xFF)+(value&0xFF) > 0xFF

	c.resetFlag(FlagZ)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, halfCarry)
	c.setFlagToCondition(FlagC, carry)

	return result
}

// --- rotate/shift family, shared by the accumulator-only 0x07/0x0F/0x17/0x1F
// opcodes and the CB-prefixed r8/[HL] forms. setZero controls whether Z is
// computed from the result (CB forms) or forced to 0 (accumulator forms).

func (c *CPU) rlc(value uint8, setZero bool) uint8 {
	carry := value&0x80 != 0
	result := value<<1 | value>>7
	c.finishRotate(result, carry, setZero)
	return result
}

func (c *CPU) rrc(value uint8, setZero bool) uint8 {
	carry := value&0x01 != 0
	result := value>>1 | value<<7
	c.finishRotate(result, carry, setZero)
	return result
}

func (c *CPU) rl(value uint8, setZero bool) uint8 {
	carryIn := c.flagToBit(FlagC)
	carryOut := value&0x80 != 0
	result := value<<1 | carryIn
	c.finishRotate(result, carryOut, setZero)
	return result
}

func (c *CPU) rr(value uint8, setZero bool) uint8 {
	carryIn := c.flagToBit(FlagC)
	carryOut := value&0x01 != 0
	result := value>>1 | carryIn<<7
	c.finishRotate(result, carryOut, setZero)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	carry := value&0x80 != 0
	result := value << 1
	c.finishRotate(result, carry, true)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	carry := value&0x01 != 0
	result := (value >> 1) | (value & 0x80)
	c.finishRotate(result, carry, true)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	carry := value&0x01 != 0
	result := value >> 1
	c.finishRotate(result, carry, true)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.setFlagToCondition(FlagZ, result == 0)
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.resetFlag(FlagC)
	return result
}

func (c *CPU) finishRotate(result uint8, carry bool, setZero bool) {
	if setZero {
		c.setFlagToCondition(FlagZ, result == 0)
	} else {
		c.resetFlag(FlagZ)
	}
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.setFlagToCondition(FlagC, carry)
}

func (c *CPU) bitTest(bitIndex uint8, value uint8) {
	c.setFlagToCondition(FlagZ, value&(1<<bitIndex) == 0)
	c.resetFlag(FlagN)
	c.setFlag(FlagH)
}

func setBit(bitIndex uint8, value uint8) uint8   { return value | (1 << bitIndex) }
func resetBit(bitIndex uint8, value uint8) uint8 { return value &^ (1 << bitIndex) }

// daa implements decimal adjust after an 8-bit BCD addition/subtraction.
func (c *CPU) daa() {
	a := int(c.a)
	correction := 0
	carry := false

	if c.isSetFlag(FlagH) || (!c.isSetFlag(FlagN) && a&0xF > 9) {
		correction |= 0x06
	}
	if c.isSetFlag(FlagC) || (!c.isSetFlag(FlagN) && a > 0x99) {
		correction |= 0x60
		carry = true
	}

	if c.isSetFlag(FlagN) {
		a -= correction
	} else {
		a += correction
	}

	c.a = uint8(a)
	c.setFlagToCondition(FlagZ, c.a == 0)
	c.resetFlag(FlagH)
	c.setFlagToCondition(FlagC, carry)
}

// condition codes for conditional JP/JR/CALL/RET
func (c *CPU) condNZ() bool { return !c.isSetFlag(FlagZ) }
func (c *CPU) condZ() bool  { return c.isSetFlag(FlagZ) }
func (c *CPU) condNC() bool { return !c.isSetFlag(FlagC) }
func (c *CPU) condC() bool  { return c.isSetFlag(FlagC) }
