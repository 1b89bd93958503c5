package stats

// Fixed is a Source that always returns the same values. Useful when a
// scenario must not depend on luck: Fixed{Float: 0.99} fails every chance
// roll below 99% and Fixed{Float: 0} passes every one.
type Fixed struct {
	Int   int
	Float float64
}

// Intn returns Int clamped into [0, n).
func (f Fixed) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if f.Int < 0 {
		return 0
	}
	if f.Int >= n {
		return n - 1
	}
	return f.Int
}

// Float64 returns Float clamped into [0, 1).
func (f Fixed) Float64() float64 {
	if f.Float < 0 {
		return 0
	}
	if f.Float >= 1 {
		return 0.999999
	}
	return f.Float
}

// Sequence replays scripted values in order, then falls back to Fallback.
type Sequence struct {
	Ints     []int
	Floats   []float64
	Fallback Fixed
}

// Intn returns the next scripted int clamped into [0, n).
func (s *Sequence) Intn(n int) int {
	if len(s.Ints) == 0 {
		return s.Fallback.Intn(n)
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	return Fixed{Int: v}.Intn(n)
}

// Float64 returns the next scripted float clamped into [0, 1).
func (s *Sequence) Float64() float64 {
	if len(s.Floats) == 0 {
		return s.Fallback.Float64()
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return Fixed{Float: v}.Float64()
}
