package ta

import "testing"

func TestLast(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	if got := Last(s, 0); got != 4 {
		t.Errorf("Last(s, 0) = %v, want 4", got)
	}
	if got := Last(s, 2); got != 2 {
		t.Errorf("Last(s, 2) = %v, want 2", got)
	}
}

func TestLastValues(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	got := LastValues(s, 2)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("LastValues(s, 2) = %v, want [3 4]", got)
	}
	// size超过长度时返回整个序列
	if got := LastValues(s, 10); len(got) != 4 {
		t.Errorf("LastValues(s, 10) = %v, want full series", got)
	}
}

func TestHighestLowest(t *testing.T) {
	s := []float64{9, 1, 5, 3, 7}
	if got := Highest(s, 3); got != 7 {
		t.Errorf("Highest(s, 3) = %v, want 7", got)
	}
	if got := Lowest(s, 3); got != 3 {
		t.Errorf("Lowest(s, 3) = %v, want 3", got)
	}
	// 窗口大于序列时覆盖全部
	if got := Highest(s, 10); got != 9 {
		t.Errorf("Highest(s, 10) = %v, want 9", got)
	}
	if got := Lowest(s, 10); got != 1 {
		t.Errorf("Lowest(s, 10) = %v, want 1", got)
	}
}
