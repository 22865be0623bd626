package util

import "testing"

func TestHashUserKeyIsStableHex(t *testing.T) {
	id := "guest:session-42"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName("dir/sub\\resume.pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "dir_sub_resume.pdf" {
		t.Fatalf("unexpected result: %q", got)
	}

	if _, err := SanitizeFileName("../../etc/passwd"); err == nil {
		t.Fatal("traversal must be rejected")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatal("blank name must be rejected")
	}
}
