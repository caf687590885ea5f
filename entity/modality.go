package entity

import (
	"math/bits"
	"strings"
)

// ModalityMask has one bit per imaging modality. Bit positions are persisted
// and must never be reordered; append new modalities at the end.
type ModalityMask int64

// modalities lists modality codes by bit position.
var modalities = []string{
	"CT", "MR", "PT", "NM", "US", "CR", "DX", "MG", "XA", "RF",
	"OT", "SC", "SR", "PR", "SEG", "RTSTRUCT", "RTDOSE", "RTPLAN", "RTIMAGE", "RTRECORD",
	"REG", "KO", "DOC", "ECG", "IO", "PX",
}

var modalityIndex = func() map[string]int {
	m := make(map[string]int, len(modalities))
	for i, code := range modalities {
		m[code] = i
	}
	return m
}()

// otherBit receives every modality missing from the table.
var otherBit = ModalityMask(1) << modalityIndex["OT"]

// ModalityBit returns the bit for a modality code, case-insensitively.
// Unknown or empty codes map to the OT bit.
func ModalityBit(code string) ModalityMask {
	i, ok := modalityIndex[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return otherBit
	}
	return ModalityMask(1) << i
}

// KnownModality reports whether code has its own bit.
func KnownModality(code string) bool {
	_, ok := modalityIndex[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// ModalityMaskOf ORs the bits of several codes.
func ModalityMaskOf(codes ...string) ModalityMask {
	var m ModalityMask
	for _, c := range codes {
		m |= ModalityBit(c)
	}
	return m
}

// Has reports whether every bit of other is set in m.
func (m ModalityMask) Has(other ModalityMask) bool {
	return m&other == other
}

// Names decodes the mask into modality codes in bit order.
func (m ModalityMask) Names() []string {
	names := make([]string, 0, bits.OnesCount64(uint64(m)))
	for i, code := range modalities {
		if m&(ModalityMask(1)<<i) != 0 {
			names = append(names, code)
		}
	}
	return names
}

// String renders the mask as "CT\MR", the DICOM multi-value form.
func (m ModalityMask) String() string {
	return strings.Join(m.Names(), `\`)
}
