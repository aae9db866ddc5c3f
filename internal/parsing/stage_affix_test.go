package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeorgeTG/oracle/internal/events"
)

func TestStageAffixParserCollectsBlock(t *testing.T) {
	// Arrange
	p := NewStageAffixParser()

	// Act
	out := collect(p,
		"[2025.11.26-20.04.29:900][99]GameLog: Display: [Game] EnterLevel(5302)",
		"[2025.11.26-20.04.30:000][100]GameLog: Display: [Game] AffixInfos",
		"[2025.11.26-20.04.30:001][100]GameLog: Display: [Game] +DangerNumbers",
		"[2025.11.26-20.04.30:002][100]GameLog: Display: [Game] +Id [40123]",
		"[2025.11.26-20.04.30:003][100]GameLog: Display: [Game] +Description [Monsters deal extra lightning damage]",
		"[2025.11.26-20.04.30:004][100]GameLog: Display: [Game] +DangerNumbers",
		"[2025.11.26-20.04.30:005][100]GameLog: Display: [Game] +Id [40456]",
		"[2025.11.26-20.04.30:006][100]GameLog: Display: [Game] +Description [Players take increased physical damage]",
		"[2025.11.26-20.04.30:007][100]GameLog: Display: [Game] OnEnterAreaEnd()")

	// Assert
	require.Len(t, out, 1)
	ev := out[0].(events.StageAffixEvent)
	assert.Equal(t, 5302, ev.LevelID)
	require.Len(t, ev.Affixes, 2)
	assert.Equal(t, 40123, ev.Affixes[0].AffixID)
	assert.Equal(t, "Monsters deal extra lightning damage", ev.Affixes[0].Description)
	assert.Equal(t, 40456, ev.Affixes[1].AffixID)
}

func TestStageAffixParserEmptyBlockEmitsNothing(t *testing.T) {
	p := NewStageAffixParser()

	out := collect(p,
		"[2025.11.26-20.04.29:900][99]GameLog: Display: [Game] EnterLevel(5302)",
		"[2025.11.26-20.04.30:000][100]GameLog: Display: [Game] AffixInfos",
		"[2025.11.26-20.04.30:007][100]GameLog: Display: [Game] OnEnterAreaEnd()")

	assert.Empty(t, out)
}

func TestStageAffixParserRequiresLevelID(t *testing.T) {
	// Without a preceding EnterLevel(N) marker the block has no level to
	// attach to, so it is dropped.
	p := NewStageAffixParser()

	out := collect(p,
		"[2025.11.26-20.04.30:000][100]GameLog: Display: [Game] AffixInfos",
		"[2025.11.26-20.04.30:001][100]GameLog: Display: [Game] +DangerNumbers",
		"[2025.11.26-20.04.30:002][100]GameLog: Display: [Game] +Id [40123]",
		"[2025.11.26-20.04.30:007][100]GameLog: Display: [Game] OnEnterAreaEnd()")

	assert.Empty(t, out)
}

func TestStageAffixParserAffixLinesOutsideBlockIgnored(t *testing.T) {
	p := NewStageAffixParser()

	out := collect(p,
		"[2025.11.26-20.04.29:900][99]GameLog: Display: [Game] EnterLevel(5302)",
		"[2025.11.26-20.04.30:002][100]GameLog: Display: [Game] +Id [40123]",
		"[2025.11.26-20.04.30:007][100]GameLog: Display: [Game] OnEnterAreaEnd()")

	assert.Empty(t, out)
}

func TestStageAffixParserSecondBlockReusesLevelID(t *testing.T) {
	// Arrange
	p := NewStageAffixParser()
	block := []string{
		"[2025.11.26-20.04.30:000][100]GameLog: Display: [Game] AffixInfos",
		"[2025.11.26-20.04.30:001][100]GameLog: Display: [Game] +DangerNumbers",
		"[2025.11.26-20.04.30:002][100]GameLog: Display: [Game] +Id [40123]",
		"[2025.11.26-20.04.30:007][100]GameLog: Display: [Game] OnEnterAreaEnd()",
	}

	// Act
	lines := append([]string{"[2025.11.26-20.04.29:900][99]GameLog: Display: [Game] EnterLevel(5302)"}, block...)
	lines = append(lines, block...)
	out := collect(p, lines...)

	// Assert
	require.Len(t, out, 2)
	assert.Equal(t, 5302, out[1].(events.StageAffixEvent).LevelID)
}
