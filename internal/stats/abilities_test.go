package stats

import "testing"

func TestModifier(t *testing.T) {
	// D&D formula: floor((score - 10) / 2)
	tests := []struct {
		score    int
		expected int
	}{
		{1, -5},
		{7, -2}, // floor division: -3/2 = -2
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{15, 2},
		{18, 4},
		{20, 5},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			result := Modifier(tt.score)
			if result != tt.expected {
				t.Errorf("Modifier(%d) = %d, expected %d", tt.score, result, tt.expected)
			}
		})
	}
}

func TestParseAbility(t *testing.T) {
	tests := []struct {
		in   string
		want Ability
		ok   bool
	}{
		{"dex", Dexterity, true},
		{" Strength ", Strength, true},
		{"LUK", Luck, true},
		{"charm", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseAbility(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAbility(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		roll    int // Intn result, die face is roll+1
		mod     int
		dc      int
		success bool
	}{
		{"meets dc", 11, 0, 12, true},
		{"below dc", 9, 0, 12, false},
		{"modifier carries", 9, 2, 12, true},
		{"natural 20 always succeeds", 19, -10, 30, true},
		{"natural 1 always fails", 0, 30, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(Fixed{Int: tt.roll}, tt.mod, tt.dc)
			if res.Success != tt.success {
				t.Errorf("Check roll=%d mod=%d dc=%d success=%v, want %v", res.Roll, tt.mod, tt.dc, res.Success, tt.success)
			}
		})
	}
}
