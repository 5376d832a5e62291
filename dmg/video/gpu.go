package video

import (
	"fmt"
	"log/slog"

	"github.com/arledge/dmgo/dmg/addr"
	"github.com/arledge/dmgo/dmg/bit"
	"github.com/arledge/dmgo/dmg/memory"
)

// GpuMode represents the PPU's current rendering stage.
// These values match the STAT register bits 1-0.
type GpuMode int

const (
	// hblankMode (Mode 0): Horizontal blank period, CPU can access VRAM/OAM
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): Vertical blank period, CPU can access VRAM/OAM
	vblankMode GpuMode = 1
	// oamReadMode (Mode 2): PPU is reading OAM, CPU cannot access OAM
	oamReadMode GpuMode = 2
	// vramReadMode (Mode 3): PPU is reading VRAM, CPU cannot access VRAM/OAM
	vramReadMode GpuMode = 3
)

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles
	framesPerCycle     = 70224 // scanlineCycles * 154 lines
)

// oamMemory adapts the MMU's register-bypass accessor to the OAMBus
// interface: OAM scanning needs both raw OAM bytes and LCDC, and both are
// plain array reads that must never be blocked by the CPU-facing DMA/VRAM
// locks (the PPU is what's driving the DMA arbitration, not subject to it).
type oamMemory struct{ mmu *memory.MMU }

func (o oamMemory) Read(address uint16) byte { return o.mmu.ReadRegister(address) }

type GPU struct {
	memory      *memory.MMU
	framebuffer *FrameBuffer
	oam         *OAM
	bgPriority  []byte // background/window color index per pixel, for sprite BG-priority checks

	mode             GpuMode // current PPU mode (matches STAT bits 1-0)
	line             int     // current scanline (LY register, 0-153)
	cycles           int     // cycles elapsed in the current mode
	vblankClock      int     // sub-counter tracking elapsed cycles across VBlank's 10 pseudo-scanlines
	vblankLine       int     // which VBlank pseudo-scanline we're on (0-9)
	pixelCounter     int     // pixel counter within scanline, exposed for partial-scanline tests
	scanlineRendered bool    // whether the current scanline has already been drawn this VRAM-mode visit
	windowLine       int     // internal window line counter (0-143), only advances on rows the window draws
}

func NewGpu(mem *memory.MMU) *GPU {
	gpu := &GPU{
		framebuffer: NewFrameBuffer(),
		memory:      mem,
		oam:         NewOAM(oamMemory{mem}),
		mode:        vblankMode,
		bgPriority:  make([]byte, FramebufferSize),
		line:        144,
	}

	lcdc := mem.Read(addr.LCDC)
	bgp := mem.Read(addr.BGP)
	slog.Debug("GPU initialized", "LCDC", fmt.Sprintf("0x%02X", lcdc), "LCD_enabled", (lcdc&0x80) != 0, "BGP", fmt.Sprintf("0x%02X", bgp))

	return gpu
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Tick advances the PPU's mode state machine by the given number of T-cycles,
// rendering a scanline in full the moment pixel transfer begins for it.
func (g *GPU) Tick(cycles int) {
	g.cycles += cycles

	switch g.mode {
	case hblankMode:
		g.tickHBlank()
	case vblankMode:
		g.tickVBlank(cycles)
	case oamReadMode:
		g.tickOAMScan()
	case vramReadMode:
		g.tickPixelTransfer()
	}

	if g.cycles >= framesPerCycle {
		g.cycles -= framesPerCycle
	}
}

func (g *GPU) tickHBlank() {
	if g.cycles < hblankCycles {
		return
	}
	g.cycles -= hblankCycles
	g.setMode(oamReadMode)
	g.setLY(g.line + 1)

	if g.line == 144 {
		g.enterVBlank()
		return
	}

	if g.statIRQEnabled(statOamIrq) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) enterVBlank() {
	g.setMode(vblankMode)
	g.vblankLine = 0
	g.vblankClock = g.cycles
	g.windowLine = 0

	g.memory.RequestInterrupt(addr.VBlankInterrupt)
	if g.statIRQEnabled(statVblankIrq) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) tickVBlank(cycles int) {
	g.vblankClock += cycles

	if g.vblankClock >= scanlineCycles {
		g.vblankClock -= scanlineCycles
		g.vblankLine++
		if g.vblankLine <= 9 {
			g.setLY(g.line + 1)
		}
	}

	// LY resets to 0 partway through the 10th pseudo-scanline, not at its start.
	if g.cycles >= 4104 && g.vblankClock >= 4 && g.line == 153 {
		g.setLY(0)
	}

	if g.cycles >= 4560 {
		g.cycles -= 4560
		g.setMode(oamReadMode)
		if g.statIRQEnabled(statOamIrq) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	}
}

func (g *GPU) tickOAMScan() {
	if g.cycles < oamScanlineCycles {
		return
	}
	g.cycles -= oamScanlineCycles
	g.setMode(vramReadMode)
	g.scanlineRendered = false
}

func (g *GPU) tickPixelTransfer() {
	if !g.scanlineRendered {
		if g.readLCDCVariable(lcdDisplayEnable) == 1 {
			g.drawScanline()
		}
		g.scanlineRendered = true
	}

	if g.cycles < vramScanlineCycles {
		return
	}
	g.pixelCounter = 0
	g.cycles -= vramScanlineCycles
	g.setMode(hblankMode)

	if g.statIRQEnabled(statHblankIrq) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) statIRQEnabled(flag statFlag) bool {
	return bit.IsSet(uint8(flag), g.memory.ReadRegister(addr.STAT))
}

func (g *GPU) drawScanline() {
	if g.readLCDCVariable(lcdDisplayEnable) != 1 {
		lineStart := g.line * FramebufferWidth
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineStart+i] = uint32(WhiteColor)
		}
		return
	}

	g.drawBackground()
	g.drawWindow()
	g.drawSprites()
}

// pixelValue reads the 2-bit color index out of a tile row's low/high bit
// planes at the given bit position (7 = leftmost pixel of the row).
func pixelValue(bitIndex uint8, low, high byte) byte {
	var pixel byte
	if bit.IsSet(bitIndex, low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, high) {
		pixel |= 2
	}
	return pixel
}

// tileRowAddress resolves the VRAM address of a tile row, honoring LCDC's
// signed/unsigned BG & window tile data addressing mode.
func tileRowAddress(tilesAddr uint16, tileValue byte, signedAddressing bool, rowOffset int) uint16 {
	if signedAddressing {
		return uint16(int(tilesAddr) + int(int8(tileValue))*16 + rowOffset)
	}
	return tilesAddr + uint16(int(tileValue)*16) + uint16(rowOffset)
}

func (g *GPU) drawBackground() {
	lineStart := g.line * FramebufferWidth

	if g.readLCDCVariable(bgDisplay) != 1 {
		// Background disabled: the whole line shows BGP's color 0, and
		// counts as fully transparent for sprite BG-priority purposes.
		palette := g.memory.ReadRegister(addr.BGP)
		displayColor := uint32(ByteToColor(palette & 0x03))
		for i := range FramebufferWidth {
			g.framebuffer.buffer[lineStart+i] = displayColor
			g.bgPriority[lineStart+i] = 0
		}
		return
	}

	signedAddressing := g.readLCDCVariable(bgWindowTileDataSelect) == 0
	tilesAddr := addr.TileData0
	if signedAddressing {
		tilesAddr = addr.TileData2
	}
	tileMapAddr := addr.TileMap1
	if g.readLCDCVariable(bgTileMapDisplaySelect) == 0 {
		tileMapAddr = addr.TileMap0
	}

	scrollX := g.memory.ReadRegister(addr.SCX)
	scrollY := g.memory.ReadRegister(addr.SCY)
	mapLine := (g.line + int(scrollY)) & 0xFF // the 256x256 BG map wraps
	mapRow := (mapLine / 8) * 32
	rowOffset := (mapLine % 8) * 2

	for x := 0; x < FramebufferWidth; x++ {
		mapX := (x + int(scrollX)) & 0xFF
		tileCol := mapX / 8
		tileBit := uint8(7 - mapX%8)

		tileValue := g.memory.ReadVRAM(tileMapAddr + uint16(mapRow+tileCol))
		tileAddr := tileRowAddress(tilesAddr, tileValue, signedAddressing, rowOffset)

		low := g.memory.ReadVRAM(tileAddr)
		high := g.memory.ReadVRAM(tileAddr + 1)
		pixel := pixelValue(tileBit, low, high)

		palette := g.memory.ReadRegister(addr.BGP)
		color := (palette >> (pixel * 2)) & 0x03

		position := lineStart + x
		g.framebuffer.buffer[position] = uint32(ByteToColor(color))
		g.bgPriority[position] = pixel
	}
}

func (g *GPU) drawWindow() {
	if g.windowLine > 143 || g.readLCDCVariable(windowDisplayEnable) != 1 {
		return
	}

	// WX is stored with a +7 hardware offset; subtracting it as a byte is
	// intentional here: WX < 7 wraps past 159 and the range check below
	// takes the window off-screen, matching the PPU's real behavior for
	// that edge case.
	wx := g.memory.ReadRegister(addr.WX) - 7
	wy := g.memory.ReadRegister(addr.WY)

	if wx > 159 || wy > 143 || int(wy) > g.line {
		return
	}

	signedAddressing := g.readLCDCVariable(bgWindowTileDataSelect) == 0
	tilesAddr := addr.TileData0
	if signedAddressing {
		tilesAddr = addr.TileData2
	}
	tileMapAddr := addr.TileMap1
	if g.readLCDCVariable(windowTileMapSelect) == 0 {
		tileMapAddr = addr.TileMap0
	}

	mapRow := (g.windowLine / 8) * 32
	rowOffset := (g.windowLine % 8) * 2
	lineStart := g.line * FramebufferWidth

	tileCount := (FramebufferWidth - int(wx) + 7) / 8
	if tileCount > 32 {
		tileCount = 32
	}

	for tileX := 0; tileX < tileCount; tileX++ {
		tileValue := g.memory.ReadVRAM(tileMapAddr + uint16(mapRow+tileX))
		tileAddr := tileRowAddress(tilesAddr, tileValue, signedAddressing, rowOffset)

		low := g.memory.ReadVRAM(tileAddr)
		high := g.memory.ReadVRAM(tileAddr + 1)

		for px := 0; px < 8; px++ {
			bufferX := tileX*8 + px + int(wx)
			if bufferX < int(wx) || bufferX >= FramebufferWidth {
				continue
			}

			position := lineStart + bufferX
			if position >= len(g.framebuffer.buffer) {
				continue
			}

			pixel := pixelValue(uint8(7-px), low, high)
			palette := g.memory.ReadRegister(addr.BGP)
			color := (palette >> (pixel * 2)) & 0x03

			g.framebuffer.buffer[position] = uint32(ByteToColor(color))
			g.bgPriority[position] = pixel
		}
	}
	g.windowLine++
}

// drawSprites renders the scanline's visible sprites through the shared OAM
// scan/priority abstraction rather than re-deriving selection and pixel
// ownership inline; gpu.go only needs to turn resolved pixels into colors.
func (g *GPU) drawSprites() {
	if g.readLCDCVariable(spriteDisplayEnable) != 1 {
		return
	}

	lineStart := g.line * FramebufferWidth
	sprites := g.oam.GetSpritesForScanline(g.line)

	for i := range sprites {
		sprite := &sprites[i]
		if !sprite.HasPriorityForAnyPixel() {
			continue // every pixel this sprite covers lost to a higher-priority sprite
		}

		tileMask := 0xFF
		if sprite.Height == 16 {
			tileMask = 0xFE
		}
		tileNum := (int(sprite.TileIndex) & tileMask) * 16

		objPaletteAddr := addr.OBP0
		if sprite.PaletteOBP1 {
			objPaletteAddr = addr.OBP1
		}

		pixelY := g.line - int(sprite.Y)
		if sprite.FlipY {
			pixelY = sprite.Height - 1 - pixelY
		}

		tileBank := 0
		if sprite.Height == 16 && pixelY >= 8 {
			tileBank = 16
			pixelY -= 8
		}

		// sprites always use unsigned tile addressing from 0x8000
		tileAddr := addr.TileData0 + uint16(tileNum+pixelY*2+tileBank)
		low := g.memory.ReadVRAM(tileAddr)
		high := g.memory.ReadVRAM(tileAddr + 1)

		for px := 0; px < 8; px++ {
			if !sprite.HasPriorityForPixel(px) {
				continue
			}

			bitIndex := uint8(7 - px)
			if sprite.FlipX {
				bitIndex = uint8(px)
			}

			pixel := pixelValue(bitIndex, low, high)
			if pixel == 0 {
				continue // transparent
			}

			bufferX := int(sprite.X) + px
			if bufferX < 0 || bufferX >= FramebufferWidth {
				continue
			}
			position := lineStart + bufferX

			if sprite.BehindBG && g.bgPriority[position] != 0 {
				continue // sprite is behind a non-transparent background pixel
			}

			palette := g.memory.ReadRegister(objPaletteAddr)
			color := (palette >> (pixel * 2)) & 0x03
			g.framebuffer.buffer[position] = uint32(ByteToColor(color))
		}
	}
}

// LCD Stat (Status) Register bit values
// Bit 7 - unused
// Bit 6 - Interrupt based on LYC to LY comparison (based on bit 2)
// Bit 5 - Interrupt when Mode 10 (oamReadMode)
// Bit 4 - Interrupt when Mode 01 (vblankMode)
// Bit 3 - Interrupt when Mode 00 (hblankMode)
// Bit 2 - condition for triggering LYC/LY (0=LYC != LY, 1=LYC == LY)
// Bit 1,0 - represents the current GPU mode
//   - 00 -> hblankMode
//   - 01 -> vblankMode
//   - 10 -> oamReadMode
//   - 11 -> vramReadMode
type statFlag uint8

const (
	statLycIrq       statFlag = 6
	statOamIrq                = 5
	statVblankIrq             = 4
	statHblankIrq             = 3
	statLycCondition          = 2
	statModeHigh              = 1
	statModeLow               = 0
)

// LCDC (LCD Control) Register bit values
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On)
type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect             = 6
	windowDisplayEnable             = 5
	bgWindowTileDataSelect          = 4
	bgTileMapDisplaySelect          = 3
	spriteSize                      = 2
	spriteDisplayEnable             = 1
	bgDisplay                       = 0
)

func (g *GPU) readLCDCVariable(flag lcdcFlag) byte {
	if bit.IsSet(uint8(flag), g.memory.ReadRegister(addr.LCDC)) {
		return 1
	}
	return 0
}

func (g *GPU) compareLYToLYC() {
	ly := g.memory.ReadRegister(addr.LY)
	lyc := g.memory.ReadRegister(addr.LYC)
	stat := g.memory.ReadRegister(addr.STAT)

	if ly == lyc {
		stat = bit.Set(statLycCondition, stat)
		if bit.IsSet(uint8(statLycIrq), stat) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(statLycCondition, stat)
	}

	g.memory.WriteRegister(addr.STAT, stat)
}

// setMode sets the two bits (1,0) in the STAT register according to the
// selected GPU mode.
func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	stat := g.memory.ReadRegister(addr.STAT)
	stat = stat&0xFC | byte(g.mode)
	g.memory.WriteRegister(addr.STAT, stat)
}

// setLY updates the current scanline (LY register) and re-evaluates the
// LY/LYC comparison and its interrupt.
func (g *GPU) setLY(line int) {
	g.line = line
	g.memory.WriteRegister(addr.LY, byte(g.line))
	g.compareLYToLYC()
}
