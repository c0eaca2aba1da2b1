package wave

import "math"

// DifficultyBase is the deterministic part of the wave difficulty
// multiplier: a linear ramp with a mild logarithmic boost at higher waves.
// Strictly increasing in the wave number.
func DifficultyBase(waveNumber int) float64 {
	if waveNumber < 1 {
		waveNumber = 1
	}
	n := float64(waveNumber)
	base := 1 + (n-1)*0.15
	ramp := math.Log10(n+9) / math.Log10(10)
	return base * ramp
}

// rollDifficulty applies the per-spawn ±10% variance to the base multiplier.
func (d *Director) rollDifficulty(waveNumber int) float64 {
	return DifficultyBase(waveNumber) * (0.9 + d.rng.Float64()*0.2)
}
