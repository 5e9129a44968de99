package nslstore

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslcard"
)

// Archive is a validated, read-only view over a sealed batch file. It is
// backed either by a memory map (Open) or by a plain in-memory byte slice
// (OpenBytes, mainly for tests); in both cases, view access is zero-copy:
// RecordView slices alias the underlying bytes directly.
type Archive struct {
	data []byte
	hdr  header
	mmap bool
}

// Open memory-maps path read-only and validates its structure (magic,
// length consistency, CRC32) before returning. The returned Archive must be
// closed with Close to release the mapping.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("nslstore: open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, xerrors.Errorf("nslstore: stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, xerrors.Errorf("%w: %s is empty", ErrCorrupt, path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, xerrors.Errorf("nslstore: mmap %s: %w", path, err)
	}

	hdr, err := decodeHeader(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if err := validateOffsets(data, hdr); err != nil {
		_ = unix.Munmap(data)
		return nil, xerrors.Errorf("%s: %w", path, err)
	}

	return &Archive{data: data, hdr: hdr, mmap: true}, nil
}

// OpenBytes validates an in-memory archive buffer (for example the bytes of
// a file written by Write, read via a plain ReadFile), without mmap. Only
// tests call it.
func OpenBytes(data []byte) (*Archive, error) {
	hdr, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	if err := validateOffsets(data, hdr); err != nil {
		return nil, err
	}
	return &Archive{data: data, hdr: hdr}, nil
}

// validateOffsets checks every nested length field in the offset table and
// payload: offsets are non-decreasing, within payload bounds, and every
// record's fixed-size prefix (n, max_card, r) is consistent with its slice
// length, per spec.md §4.7's "bounds and alignment of every nested length
// field" requirement.
func validateOffsets(data []byte, h header) error {
	payloadBase := headerSize + int(h.offTabLen)
	if payloadBase+int(h.payloadLen) > len(data) {
		return xerrors.Errorf("%w: payload extends past end of file", ErrCorrupt)
	}
	prev := uint32(0)
	for i := 0; i <= int(h.count); i++ {
		off := readOffset(data, i)
		if i == 0 && off != 0 {
			return xerrors.Errorf("%w: first offset %d is not zero", ErrCorrupt, off)
		}
		if off < prev {
			return xerrors.Errorf("%w: offset table entry %d decreases (%d -> %d)", ErrCorrupt, i, prev, off)
		}
		if off > h.payloadLen {
			return xerrors.Errorf("%w: offset table entry %d (%d) exceeds payload length %d", ErrCorrupt, i, off, h.payloadLen)
		}
		prev = off
	}
	if prev != h.payloadLen {
		return xerrors.Errorf("%w: last offset %d does not equal payload length %d", ErrCorrupt, prev, h.payloadLen)
	}
	for i := 0; i < int(h.count); i++ {
		start, end := readOffset(data, i), readOffset(data, i+1)
		rec := data[payloadBase+int(start) : payloadBase+int(end)]
		if len(rec) < 3 {
			return xerrors.Errorf("%w: record %d shorter than fixed prefix", ErrCorrupt, i)
		}
		n, r := rec[0], rec[2]
		wantLen := 3 + int(n) + int(r)
		if len(rec) != wantLen {
			return xerrors.Errorf("%w: record %d length %d, want %d (n=%d, r=%d)", ErrCorrupt, i, len(rec), wantLen, n, r)
		}
		if int(n) < nsl.MinSize || int(n) != int(h.targetSize) {
			return xerrors.Errorf("%w: record %d has n=%d, archive target size is %d", ErrCorrupt, i, n, h.targetSize)
		}
	}
	return nil
}

func readOffset(data []byte, i int) uint32 {
	base := headerSize + i*4
	return uint32(data[base]) | uint32(data[base+1])<<8 | uint32(data[base+2])<<16 | uint32(data[base+3])<<24
}

// Validate re-checks the header (including the CRC32 over the offset table
// and payload), the offset table and every record's fixed prefix of an
// already-open archive without copying any record, so --check can confirm an
// archive is still well-formed without paying for Owned's per-record copies.
func (a *Archive) Validate() error {
	if _, err := decodeHeader(a.data); err != nil {
		return err
	}
	return validateOffsets(a.data, a.hdr)
}

// Close releases the archive's memory map, if any. It is a no-op for
// archives opened via OpenBytes.
func (a *Archive) Close() error {
	if !a.mmap {
		return nil
	}
	err := unix.Munmap(a.data)
	a.data = nil
	return err
}

// Count returns the number of records in the archive.
func (a *Archive) Count() int { return int(a.hdr.count) }

// TargetSize returns the NSL size n shared by every record in the archive.
func (a *Archive) TargetSize() int { return int(a.hdr.targetSize) }

// RecordView is a zero-copy view of one archived NSL: its accessors slice
// directly into the archive's backing bytes (an mmap or an owned buffer)
// without allocating.
type RecordView struct {
	n         uint8
	maxCard   nslcard.Card
	chosen    []nslcard.Card
	remaining []nslcard.Card
}

func (v RecordView) N() int                    { return int(v.n) }
func (v RecordView) MaxCard() nslcard.Card     { return v.maxCard }
func (v RecordView) Chosen() []nslcard.Card    { return v.chosen }
func (v RecordView) Remaining() []nslcard.Card { return v.remaining }

// At returns a zero-copy view of record i, which must be in [0, Count());
// the index is not range-checked. validateOffsets already guarantees every
// in-range record is well-formed.
func (a *Archive) At(i int) RecordView {
	payloadBase := headerSize + int(a.hdr.offTabLen)
	start, end := readOffset(a.data, i), readOffset(a.data, i+1)
	rec := a.data[payloadBase+int(start) : payloadBase+int(end)]
	n, r := rec[0], rec[2]
	return RecordView{
		n:         n,
		maxCard:   rec[1],
		chosen:    rec[3 : 3+n],
		remaining: rec[3+n : 3+n+r],
	}
}

// Owned returns a bulk-copied, independently-owned Record for index i,
// safe to retain after the Archive is closed.
func (a *Archive) Owned(i int) nsl.Record {
	v := a.At(i)
	return nsl.Record{
		N:         uint8(v.n),
		MaxCard:   v.maxCard,
		Chosen:    append([]nslcard.Card(nil), v.chosen...),
		Remaining: append([]nslcard.Card(nil), v.remaining...),
	}
}

// Each calls f for every record in the archive, in file order, as zero-copy
// views.
func (a *Archive) Each(f func(int, RecordView)) {
	for i := 0; i < a.Count(); i++ {
		f(i, a.At(i))
	}
}
