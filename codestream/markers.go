// Package codestream reads the main header of JPEG 2000 codestreams and JP2 files.
//
// Only the metadata a benchmark needs is interpreted: image and tile geometry from
// SIZ, coding style from COD, and the EOC marker used to detect truncated input.
// Tile data is never decoded.
package codestream

import "strings"

// JPEG 2000 marker codes (ISO/IEC 15444-1 Annex A).
const (
	MarkerSOC uint16 = 0xFF4F
	MarkerSIZ uint16 = 0xFF51
	MarkerCOD uint16 = 0xFF52
	MarkerCOC uint16 = 0xFF53
	MarkerTLM uint16 = 0xFF55
	MarkerPLM uint16 = 0xFF57
	MarkerQCD uint16 = 0xFF5C
	MarkerQCC uint16 = 0xFF5D
	MarkerRGN uint16 = 0xFF5E
	MarkerPOC uint16 = 0xFF5F
	MarkerPPM uint16 = 0xFF60
	MarkerCRG uint16 = 0xFF63
	MarkerCOM uint16 = 0xFF64
	MarkerSOT uint16 = 0xFF90
	MarkerSOD uint16 = 0xFF93
	MarkerEOC uint16 = 0xFFD9
)

// MarkerName returns the mnemonic of a marker code.
func MarkerName(marker uint16) string {
	switch marker {
	case MarkerSOC:
		return "SOC"
	case MarkerSIZ:
		return "SIZ"
	case MarkerCOD:
		return "COD"
	case MarkerCOC:
		return "COC"
	case MarkerTLM:
		return "TLM"
	case MarkerPLM:
		return "PLM"
	case MarkerQCD:
		return "QCD"
	case MarkerQCC:
		return "QCC"
	case MarkerRGN:
		return "RGN"
	case MarkerPOC:
		return "POC"
	case MarkerPPM:
		return "PPM"
	case MarkerCRG:
		return "CRG"
	case MarkerCOM:
		return "COM"
	case MarkerSOT:
		return "SOT"
	case MarkerSOD:
		return "SOD"
	case MarkerEOC:
		return "EOC"
	default:
		return "UNKNOWN"
	}
}

// ProgressionOrder is the packet progression order signalled in COD.
type ProgressionOrder uint8

// Progression orders, in the order they are numbered by the standard.
const (
	LRCP ProgressionOrder = iota
	RLCP
	RPCL
	PCRL
	CPRL
)

// String returns the progression order mnemonic.
func (p ProgressionOrder) String() string {
	switch p {
	case LRCP:
		return "LRCP"
	case RLCP:
		return "RLCP"
	case RPCL:
		return "RPCL"
	case PCRL:
		return "PCRL"
	case CPRL:
		return "CPRL"
	default:
		return "UNKNOWN"
	}
}

// ParseProgressionOrder maps a mnemonic such as "RPCL" or "rpcl" to its code.
func ParseProgressionOrder(s string) (ProgressionOrder, bool) {
	for p := LRCP; p <= CPRL; p++ {
		if strings.EqualFold(p.String(), s) {
			return p, true
		}
	}
	return 0, false
}
