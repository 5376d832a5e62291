package memory

import (
	"fmt"
	"log/slog"
)

const titleLength = 11

const (
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E
)

// ChecksumError reports a cartridge whose header checksum does not match its
// contents — on real hardware the boot ROM refuses to run such a cartridge.
type ChecksumError struct {
	Want uint8
	Got  uint8
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("cartridge header checksum mismatch: header says 0x%02X, computed 0x%02X", e.Want, e.Got)
}

// Cartridge holds raw ROM bytes plus the header fields that decide which MBC
// to instantiate.
type Cartridge struct {
	data []byte

	title          string
	headerChecksum uint8
	globalChecksum uint16
	version        uint8
	cartType       uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
	romBankCount uint8
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x8000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData parses a ROM image's header and returns the resulting
// Cartridge. Returns a *ChecksumError if the header checksum (bytes
// 0x134-0x14C, one's-complement sum rule) does not validate; the global
// checksum is logged as a warning only, matching real hardware which never
// checks it.
func NewCartridgeWithData(bytes []byte) (*Cartridge, error) {
	titleBytes := bytes[titleAddress : titleAddress+titleLength]
	mbcType, hasBattery, hasRTC, hasRumble := classifyCartType(bytes[cartridgeTypeAddress])

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanGameboyTitle(titleBytes),
		headerChecksum: bytes[headerChecksumAddress],
		globalChecksum: uint16(bytes[globalChecksumAddress])<<8 | uint16(bytes[globalChecksumAddress+1]),
		version:        bytes[versionNumberAddress],
		cartType:       bytes[cartridgeTypeAddress],
		romSize:        bytes[romSizeAddress],
		ramSize:        bytes[ramSizeAddress],
		mbcType:        mbcType,
		hasBattery:     hasBattery,
		hasRTC:         hasRTC,
		hasRumble:      hasRumble,
		ramBankCount:   ramBankCountFromHeader(bytes[ramSizeAddress]),
		romBankCount:   uint8(romBankCountFromHeader(bytes[romSizeAddress])),
	}

	copy(cart.data, bytes)

	if computed := computeHeaderChecksum(bytes); computed != cart.headerChecksum {
		return nil, &ChecksumError{Want: cart.headerChecksum, Got: computed}
	}

	if computed := computeGlobalChecksum(bytes); computed != cart.globalChecksum {
		slog.Warn("cartridge global checksum mismatch", "title", cart.title,
			"header", fmt.Sprintf("0x%04X", cart.globalChecksum),
			"computed", fmt.Sprintf("0x%04X", computed))
	}

	return cart, nil
}

// computeHeaderChecksum implements the documented header checksum: x = 0;
// for each byte in 0x134..0x14C, x = x - byte - 1. Result must equal the
// stored checksum byte.
func computeHeaderChecksum(data []byte) uint8 {
	var x uint8
	for _, b := range data[titleAddress:headerChecksumAddress] {
		x = x - b - 1
	}
	return x
}

// computeGlobalChecksum sums every byte except the two checksum bytes themselves.
func computeGlobalChecksum(data []byte) uint16 {
	var sum uint16
	for i, b := range data {
		if uint16(i) == globalChecksumAddress || uint16(i) == globalChecksumAddress+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}

// Title returns the cleaned cartridge title from the header.
func (c *Cartridge) Title() string { return c.title }

// ReadByte reads a byte at the specified address. Does not check bounds, so the caller must make sure the
// address is valid for the cartridge.
func (c *Cartridge) ReadByte(addr uint16) uint8 {
	return c.data[addr]
}
