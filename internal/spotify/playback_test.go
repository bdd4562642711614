package spotify

import "testing"

func TestPositionForPercent(t *testing.T) {
	const duration = 200000 // 3:20 in ms

	tests := []struct {
		name    string
		percent float64
		want    int
	}{
		{"zero", 0, 0},
		{"half", 50, 100000},
		{"full", 100, 200000},
		{"over full clamps to 100", 150, 200000},
		{"negative clamps to 0", -10, 0},
		{"quarter", 25, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := positionForPercent(tt.percent, duration); got != tt.want {
				t.Errorf("positionForPercent(%v, %d) = %d, want %d", tt.percent, duration, got, tt.want)
			}
		})
	}
}

func TestPositionForPercent_Truncates(t *testing.T) {
	// 50% of 99ms is 49.5ms; the product truncates rather than rounds.
	if got := positionForPercent(50, 99); got != 49 {
		t.Errorf("positionForPercent(50, 99) = %d, want 49", got)
	}
}

func TestPositionForPercent_ZeroDuration(t *testing.T) {
	if got := positionForPercent(75, 0); got != 0 {
		t.Errorf("positionForPercent(75, 0) = %d, want 0", got)
	}
}
