package toast

import "testing"

func TestQueue_DrainOrderAndLimit(t *testing.T) {
	q := NewQueue(2)
	q.Info("one")
	q.Success("two")
	q.Error("three")

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Message != "two" || got[0].Level != LevelSuccess {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Message != "three" || got[1].Level != LevelError {
		t.Errorf("got[1] = %+v", got[1])
	}
	if len(q.Drain()) != 0 {
		t.Error("second Drain should be empty")
	}
}
