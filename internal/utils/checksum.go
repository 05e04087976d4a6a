package utils

import (
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
)

// Checksum returns the CRC32 (IEEE) of content as lowercase hex of the
// little-endian hash bytes, e.g. "725b63a6". Ledgers written by earlier
// releases of the tool use the same rendering.
func Checksum(content []byte) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], crc32.ChecksumIEEE(content))
	return hex.EncodeToString(b[:])
}
