package txn

import "testing"

func Test_UUID_ParseRoundTrip(t *testing.T) {
	id := NewUUID()
	if id.IsNil() {
		t.Fatal("NewUUID returned the nil UUID")
	}

	parsed, err := ParseUUID(id.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != id {
		t.Fatalf("round trip got %s, want %s", parsed, id)
	}
}

func Test_UUID_ParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not-a-uuid", "123456"} {
		if _, err := ParseUUID(in); err == nil {
			t.Fatalf("ParseUUID(%q) accepted invalid input", in)
		}
	}
}

func Test_UUID_IsNil(t *testing.T) {
	if !NilUUID.IsNil() {
		t.Fatal("NilUUID.IsNil() = false")
	}
	var zero UUID
	if !zero.IsNil() {
		t.Fatal("zero-value UUID.IsNil() = false")
	}
}
