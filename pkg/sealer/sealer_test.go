package sealer

import "testing"

func TestSealRoundTrip(t *testing.T) {
	sealed, err := Seal("482913")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "482913" {
		t.Fatal("sealed code must not equal the plaintext")
	}
	code, err := Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if code != "482913" {
		t.Errorf("round trip = %q, want %q", code, "482913")
	}
}

func TestSealProducesUniqueCiphertexts(t *testing.T) {
	a, err := Seal("000000")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Seal("000000")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two seals of the same code should differ (random nonce)")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := Open("not-a-sealed-code"); err == nil {
		t.Error("expected error opening garbage")
	}
	if _, err := Open(""); err == nil {
		t.Error("expected error opening empty string")
	}
}
