package model

import "fmt"

// SettingsID keys the singleton settings row.
const SettingsID = "default"

// ProbabilitySettings weights the two scoring factors. Each weight lies in
// [0,1]; they need not sum to 1.
type ProbabilitySettings struct {
	WeightLastPlayed float64 `json:"weightLastPlayed"`
	WeightTotalPlays float64 `json:"weightTotalPlays"`
}

// Validate rejects weights outside [0,1].
func (s ProbabilitySettings) Validate() error {
	if s.WeightLastPlayed < 0 || s.WeightLastPlayed > 1 {
		return fmt.Errorf("%w: weightLastPlayed %v out of range [0,1]", ErrValidation, s.WeightLastPlayed)
	}
	if s.WeightTotalPlays < 0 || s.WeightTotalPlays > 1 {
		return fmt.Errorf("%w: weightTotalPlays %v out of range [0,1]", ErrValidation, s.WeightTotalPlays)
	}
	return nil
}

// Clamped returns a copy with both weights forced into [0,1].
func (s ProbabilitySettings) Clamped() ProbabilitySettings {
	return ProbabilitySettings{
		WeightLastPlayed: clamp01(s.WeightLastPlayed),
		WeightTotalPlays: clamp01(s.WeightTotalPlays),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// RegistrationLock records that a day's selection was already locked in.
type RegistrationLock struct {
	LastRegistrationDate string `json:"lastRegistrationDate"` // YYYY-MM-DD
	RegistrationLocked   bool   `json:"registrationLocked"`
}

// LockedOn reports whether the lock applies to the given YYYY-MM-DD date.
func (l RegistrationLock) LockedOn(date string) bool {
	return l.RegistrationLocked && l.LastRegistrationDate == date
}

// Settings is the singleton settings row.
type Settings struct {
	Probability ProbabilitySettings `json:"probability"`
	Lock        RegistrationLock    `json:"registration"`
}
