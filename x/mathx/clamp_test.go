package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp(5,0,3)=%d", got)
	}
	if got := Clamp(-1.5, 2.0, -1.0); got != -1.0 {
		t.Fatalf("Clamp with swapped bounds=%g", got)
	}
	if got := Clamp(int64(7), -10, 10); got != 7 {
		t.Fatalf("Clamp(7)=%d", got)
	}
}
