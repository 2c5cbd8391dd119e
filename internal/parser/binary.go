package parser

import "bytes"

// sniffLen is how much of a file is inspected for binary content.
const sniffLen = 512

// binaryMagic lists signatures of payloads that are served or shipped under
// a .js name but are not JavaScript text.
var binaryMagic = [][]byte{
	{0x1F, 0x8B},             // gzip (pre-compressed bundles)
	{0x00, 0x61, 0x73, 0x6D}, // wasm
	{0x50, 0x4B, 0x03, 0x04}, // zip
	{0x28, 0xB5, 0x2F, 0xFD}, // zstd
	{0x89, 0x50, 0x4E, 0x47}, // png
	{0x7F, 0x45, 0x4C, 0x46}, // elf
}

// LooksBinary reports whether src is unlikely to be source text: a known
// binary signature, any NUL byte, or more than 30% control characters in the
// first 512 bytes.
func LooksBinary(src []byte) bool {
	sample := src
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}
	if len(sample) == 0 {
		return false
	}
	for _, magic := range binaryMagic {
		if bytes.HasPrefix(sample, magic) {
			return true
		}
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	control := 0
	for _, b := range sample {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' && b != '\v' {
			control++
		}
	}
	return control > len(sample)*30/100
}
