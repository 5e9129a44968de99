package nslstore

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/natefinch/atomic"
	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nsl"
)

// encodeRecord appends the exact-length encoding of r to dst: n, max_card,
// len(remaining), chosen bytes, remaining bytes.
func encodeRecord(dst []byte, r *nsl.Record) []byte {
	dst = append(dst, r.N, r.MaxCard, uint8(len(r.Remaining)))
	dst = append(dst, r.Chosen...)
	dst = append(dst, r.Remaining...)
	return dst
}

// Write serializes records into the zero-copy archive format and seals it
// to path via write-to-temp + fsync + atomic rename (spec.md §4.7). targetSize
// is the NSL size n shared by every record; all records in one archive must
// have this same size.
//
// Write is all-or-nothing from an external observer's point of view: on
// error, path is left untouched (any partial temp file is atomic.WriteFile's
// responsibility to clean up).
func Write(path string, targetSize int, records []nsl.Record) error {
	if len(records) == 0 {
		return xerrors.New("nslstore: refusing to write an empty archive")
	}

	var payload bytes.Buffer
	offsets := make([]uint32, 0, len(records)+1)
	offsets = append(offsets, 0)
	for i := range records {
		r := &records[i]
		if int(r.N) != targetSize {
			return xerrors.Errorf("nslstore: record %d has size %d, archive target size is %d", i, r.N, targetSize)
		}
		buf := encodeRecord(nil, r)
		payload.Write(buf)
		offsets = append(offsets, uint32(payload.Len()))
	}

	offTabLen := uint32(len(offsets) * 4)
	h := header{
		version:    FormatVersion,
		targetSize: uint32(targetSize),
		count:      uint32(len(records)),
		payloadLen: uint32(payload.Len()),
		offTabLen:  offTabLen,
	}

	body := make([]byte, 0, offTabLen+uint32(payload.Len()))
	for _, off := range offsets {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], off)
		body = append(body, b[:]...)
	}
	body = append(body, payload.Bytes()...)
	h.crc32 = crc32.ChecksumIEEE(body)

	out := make([]byte, 0, headerSize+len(body))
	out = append(out, encodeHeader(h)...)
	out = append(out, body...)

	return atomic.WriteFile(path, bytes.NewReader(out))
}
