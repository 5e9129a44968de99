package nslstore

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsouche/nsl/internal/nsl"
	"github.com/tsouche/nsl/internal/nslcard"
)

func sampleRecords() []nsl.Record {
	return []nsl.Record{
		{N: 4, MaxCard: 5, Chosen: []nslcard.Card{0, 1, 3, 5}, Remaining: []nslcard.Card{9, 12}},
		{N: 4, MaxCard: 6, Chosen: []nslcard.Card{0, 1, 3, 6}, Remaining: nil},
		{N: 4, MaxCard: 8, Chosen: []nslcard.Card{2, 4, 7, 8}, Remaining: []nslcard.Card{20}},
	}
}

func TestWriteOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.rkyv")
	recs := sampleRecords()

	if err := Write(path, 4, recs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.Count() != len(recs) {
		t.Fatalf("Count() = %d, want %d", a.Count(), len(recs))
	}
	if a.TargetSize() != 4 {
		t.Fatalf("TargetSize() = %d, want 4", a.TargetSize())
	}
	for i, want := range recs {
		got := a.Owned(i)
		if !got.Equal(&want) {
			t.Errorf("record %d mismatch: got %+v want %+v", i, got, want)
		}
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.rkyv")
	if err := Write(path, 4, sampleRecords()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	full, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	truncated := append([]byte(nil), full.data[:len(full.data)-1]...)
	full.Close()

	if _, err := OpenBytes(truncated); err == nil {
		t.Fatal("expected truncated archive to fail validation")
	}
}

func TestOpenRejectsBadCRC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.rkyv")
	if err := Write(path, 4, sampleRecords()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	corrupted := append([]byte(nil), a.data...)
	a.Close()
	corrupted[len(corrupted)-1] ^= 0xFF

	if _, err := OpenBytes(corrupted); err == nil {
		t.Fatal("expected corrupted archive to fail CRC validation")
	}
}

func TestZeroCopyViewAliasesBackingBytes(t *testing.T) {
	recs := sampleRecords()
	var payload []byte
	for i := range recs {
		payload = encodeRecord(payload, &recs[i])
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "batch.rkyv")
	if err := Write(path, 4, recs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	v := a.At(0)
	if diff := cmp.Diff(recs[0].Chosen, v.Chosen()); diff != "" {
		t.Errorf("chosen mismatch (-want +got):\n%s", diff)
	}
	// Record 0 starts the payload; its chosen cards follow the 3-byte prefix.
	if want := &a.data[headerSize+int(a.hdr.offTabLen)+3]; &v.Chosen()[0] != want {
		t.Errorf("view's chosen slice does not alias the archive's backing bytes")
	}
}
