// Package nslstore implements the zero-copy archive format (spec.md §4.7,
// §6) used to persist a batch of NSL records: a self-describing binary
// layout with a fixed header, a flat offset table, and a packed payload,
// validated in place from a byte slice before any record is accessed.
//
// The layout is position-independent: every length and offset is relative,
// so the same bytes are valid whether they live in a freshly allocated
// buffer or a memory-mapped file starting at address zero. This mirrors the
// header-plus-CRC discipline of github.com/google/wuffs's lib/rac package
// and the fixed-offset header format of calvinalkan/agent-task's
// pkg/slotcache (both retrieved as reference for this repository).
package nslstore

import (
	"encoding/binary"
	"hash/crc32"

	"golang.org/x/xerrors"
)

// Magic is the 4-byte signature at the start of every archive.
var Magic = [4]byte{'N', 'S', 'L', '1'}

// FormatVersion is the current archive encoder version. Byte-for-byte
// determinism (spec.md §6) is only promised across archives sharing this
// version.
const FormatVersion = 1

// headerSize is the fixed size, in bytes, of the archive header. Field
// offsets below are relative to the start of the file.
const headerSize = 32

const (
	offMagic      = 0  // [4]byte
	offVersion    = 4  // uint32 LE
	offTargetSize = 8  // uint32 LE: the NSL size n of every record in this archive
	offCount      = 12 // uint32 LE: number of records
	offPayloadLen = 16 // uint32 LE: length in bytes of the payload area
	offOffTabLen  = 20 // uint32 LE: length in bytes of the offset table (= (count+1)*4)
	offCRC32      = 24 // uint32 LE: CRC32 (IEEE) over [headerSize, end of file)
	offReserved   = 28 // uint32, always zero
)

// header is the decoded, validated form of an archive's fixed header.
type header struct {
	version    uint32
	targetSize uint32
	count      uint32
	payloadLen uint32
	offTabLen  uint32
	crc32      uint32
}

// ErrCorrupt is wrapped by every validation failure raised while decoding an
// archive, per spec.md §7's corruption taxonomy.
var ErrCorrupt = xerrors.New("nslstore: corrupt archive")

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[offMagic:], Magic[:])
	binary.LittleEndian.PutUint32(buf[offVersion:], h.version)
	binary.LittleEndian.PutUint32(buf[offTargetSize:], h.targetSize)
	binary.LittleEndian.PutUint32(buf[offCount:], h.count)
	binary.LittleEndian.PutUint32(buf[offPayloadLen:], h.payloadLen)
	binary.LittleEndian.PutUint32(buf[offOffTabLen:], h.offTabLen)
	binary.LittleEndian.PutUint32(buf[offCRC32:], h.crc32)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, xerrors.Errorf("%w: file shorter than header (%d bytes)", ErrCorrupt, len(buf))
	}
	var magic [4]byte
	copy(magic[:], buf[offMagic:offMagic+4])
	if magic != Magic {
		return header{}, xerrors.Errorf("%w: bad magic %q", ErrCorrupt, magic[:])
	}
	h := header{
		version:    binary.LittleEndian.Uint32(buf[offVersion:]),
		targetSize: binary.LittleEndian.Uint32(buf[offTargetSize:]),
		count:      binary.LittleEndian.Uint32(buf[offCount:]),
		payloadLen: binary.LittleEndian.Uint32(buf[offPayloadLen:]),
		offTabLen:  binary.LittleEndian.Uint32(buf[offOffTabLen:]),
		crc32:      binary.LittleEndian.Uint32(buf[offCRC32:]),
	}
	if h.version != FormatVersion {
		return header{}, xerrors.Errorf("%w: unsupported format version %d", ErrCorrupt, h.version)
	}
	if h.offTabLen != (h.count+1)*4 {
		return header{}, xerrors.Errorf("%w: offset table length %d inconsistent with count %d", ErrCorrupt, h.offTabLen, h.count)
	}
	wantLen := uint64(headerSize) + uint64(h.offTabLen) + uint64(h.payloadLen)
	if uint64(len(buf)) != wantLen {
		return header{}, xerrors.Errorf("%w: file length %d, want %d", ErrCorrupt, len(buf), wantLen)
	}
	gotCRC := crc32.ChecksumIEEE(buf[headerSize:])
	if gotCRC != h.crc32 {
		return header{}, xerrors.Errorf("%w: CRC32 mismatch: file has %08x, computed %08x", ErrCorrupt, h.crc32, gotCRC)
	}
	return h, nil
}
