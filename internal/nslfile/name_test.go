package nslfile

import "testing"

func TestNameRoundTrip(t *testing.T) {
	n := Name{SourceSize: 4, SourceBatch: 12, TargetSize: 5, TargetBatch: 3}
	s := n.String()
	const want = "nsl_04_batch_000012_to_05_batch_000003.rkyv"
	if s != want {
		t.Fatalf("String() = %q, want %q", s, want)
	}
	back, err := ParseName(s)
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if back != n {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, n)
	}
}

func TestNameCompactedSuffix(t *testing.T) {
	n := Name{SourceSize: 4, SourceBatch: 1, TargetSize: 5, TargetBatch: 1, Compacted: true}
	s := n.String()
	if s != "nsl_04_batch_000001_to_05_batch_000001_compacted.rkyv" {
		t.Fatalf("unexpected compacted name: %s", s)
	}
	back, err := ParseName(s)
	if err != nil || !back.Compacted {
		t.Fatalf("ParseName of compacted name failed: %v, %+v", err, back)
	}
}

func TestParseNameRejectsMalformed(t *testing.T) {
	for _, bad := range []string{
		"nsl_4_batch_000012_to_05_batch_000003.rkyv",
		"nsl_04_batch_12_to_05_batch_3.rkyv",
		"random.rkyv",
		"nsl_04_batch_000012_to_05_batch_000003.txt",
	} {
		if _, err := ParseName(bad); err == nil {
			t.Errorf("ParseName(%q) should have failed", bad)
		}
	}
}
