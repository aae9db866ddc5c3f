package parsing

import (
	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/parsing/maps"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

// DefaultParsers builds the full parser set wired to the shared reference
// tables.
func DefaultParsers(items *refdata.ItemTable, mapTable *maps.Table, log *logrus.Entry) []Parser {
	return []Parser{
		NewItemChangeParser(items),
		NewBagModifyParser(items),
		NewEnterLevelParser(mapTable, log.WithField("parser", "enter_level")),
		NewExitLevelParser(),
		NewStageAffixParser(),
		NewGameViewParser(),
		NewPingParser(),
		NewLoadingProgressParser(),
		NewMapLoadedParser(),
		NewWorldTransitionParser(),
		NewGamePauseParser(),
		NewExpUpdateParser(),
		NewGameMessageParser(),
		NewS12GameplayParser(),
		NewTransitionStyleParser(),
		NewPlayerJoinParser(),
	}
}
