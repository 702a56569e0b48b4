package sets

import "testing"

func TestSet_AddHasMissing(t *testing.T) {
	s := New("simple", "full-demo")
	s.Add("chat")

	if !s.Has("chat") || !s.Has("simple") {
		t.Fatalf("expected members to be present: %v", s)
	}
	if s.Has("video") {
		t.Fatalf("unexpected member video")
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}

	missing := s.Missing("video", "simple", "audio")
	if len(missing) != 2 || missing[0] != "video" || missing[1] != "audio" {
		t.Fatalf("Missing() = %v, want [video audio]", missing)
	}
}
