package cpu

// opcodeFunc executes one instruction and returns its T-cycle cost.
type opcodeFunc func(*CPU) int

// opcodeTable and cbOpcodeTable are fixed-size arrays rather than maps: the
// opcode space is closed and fully known at compile time (256 entries
// each), so a map's hashing has no payoff here.
var opcodeTable [256]opcodeFunc
var cbOpcodeTable [256]opcodeFunc

// r8 is an accessor pair for one of the eight 8-bit operand slots encoded in
// three bits of an opcode: B, C, D, E, H, L, (HL), A — in that hardware order.
type r8 struct {
	get func(c *CPU) uint8
	set func(c *CPU, v uint8)
}

var r8Table = [8]r8{
	{func(c *CPU) uint8 { return c.b }, func(c *CPU, v uint8) { c.b = v }},
	{func(c *CPU) uint8 { return c.c }, func(c *CPU, v uint8) { c.c = v }},
	{func(c *CPU) uint8 { return c.d }, func(c *CPU, v uint8) { c.d = v }},
	{func(c *CPU) uint8 { return c.e }, func(c *CPU, v uint8) { c.e = v }},
	{func(c *CPU) uint8 { return c.h }, func(c *CPU, v uint8) { c.h = v }},
	{func(c *CPU) uint8 { return c.l }, func(c *CPU, v uint8) { c.l = v }},
	{func(c *CPU) uint8 { return c.bus.Read(c.getHL()) }, func(c *CPU, v uint8) { c.bus.Write(c.getHL(), v) }},
	{func(c *CPU) uint8 { return c.a }, func(c *CPU, v uint8) { c.a = v }},
}

// rp16 is an accessor pair for one of the four 16-bit register-pair slots
// used by LD rr,d16 / INC rr / DEC rr / ADD HL,rr: BC, DE, HL, SP.
type rp16 struct {
	get func(c *CPU) uint16
	set func(c *CPU, v uint16)
}

var rpTable = [4]rp16{
	{func(c *CPU) uint16 { return c.getBC() }, func(c *CPU, v uint16) { c.setBC(v) }},
	{func(c *CPU) uint16 { return c.getDE() }, func(c *CPU, v uint16) { c.setDE(v) }},
	{func(c *CPU) uint16 { return c.getHL() }, func(c *CPU, v uint16) { c.setHL(v) }},
	{func(c *CPU) uint16 { return c.sp }, func(c *CPU, v uint16) { c.sp = v }},
}

// rp2Table is the PUSH/POP variant of the register-pair slot: BC, DE, HL, AF.
var rp2Table = [4]rp16{
	{func(c *CPU) uint16 { return c.getBC() }, func(c *CPU, v uint16) { c.setBC(v) }},
	{func(c *CPU) uint16 { return c.getDE() }, func(c *CPU, v uint16) { c.setDE(v) }},
	{func(c *CPU) uint16 { return c.getHL() }, func(c *CPU, v uint16) { c.setHL(v) }},
	{func(c *CPU) uint16 { return c.AF() }, func(c *CPU, v uint16) { c.SetAF(v) }},
}

// ccTable holds the four branch condition predicates: NZ, Z, NC, C.
var ccTable = [4]func(c *CPU) bool{
	(*CPU).condNZ,
	(*CPU).condZ,
	(*CPU).condNC,
	(*CPU).condC,
}

func init() {
	initPrimaryOpcodes()
	initCBOpcodes()
}
