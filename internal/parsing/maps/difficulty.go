package maps

// Difficulty is a map tier, ordered hardest to easiest. The order matters:
// unknown map ids are resolved to a tier by their offset from a known id
// (see Lookup).
type Difficulty string

const (
	T8Plus Difficulty = "T8+"
	T8_2   Difficulty = "T8_2"
	T8_1   Difficulty = "T8_1"
	T8_0   Difficulty = "T8_0"
	T7_2   Difficulty = "T7_2"
	T7_1   Difficulty = "T7_1"
	T7_0   Difficulty = "T7_0"
	T6     Difficulty = "T6"
	T5     Difficulty = "T5"
	T4     Difficulty = "T4"
	T3     Difficulty = "T3"
	T2     Difficulty = "T2"
	T1     Difficulty = "T1"
	DS     Difficulty = "DS"
)

// Tiers returns the ordered difficulty list, hardest first.
func Tiers() []Difficulty {
	return []Difficulty{T8Plus, T8_2, T8_1, T8_0, T7_2, T7_1, T7_0, T6, T5, T4, T3, T2, T1, DS}
}

func (d Difficulty) String() string {
	return string(d)
}
