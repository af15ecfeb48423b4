package round

import "math/rand/v2"

// PickOwner returns current if that player is still present, otherwise a
// uniform draw from present. Callers pass present in a stable order so a seeded
// rng gives repeatable picks. Returns "" when nobody is present.
func PickOwner(current string, present []string, rng *rand.Rand) string {
	if len(present) == 0 {
		return ""
	}
	for _, id := range present {
		if id == current {
			return current
		}
	}
	return present[rng.IntN(len(present))]
}
