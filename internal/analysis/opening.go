package analysis

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/pgn-report/internal/trajectory"
	"github.com/park285/pgn-report/pkg/reportdto"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

func bookECO() *opening.BookECO {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// openingFor replays the trajectory's moves and returns the deepest named
// opening. Games not starting from the standard position have none.
func openingFor(positions []trajectory.Position) *reportdto.Opening {
	if len(positions) < 2 || positions[0].FEN != trajectory.StartFEN {
		return nil
	}
	game := nchess.NewGame()
	for _, p := range positions[1:] {
		if p.Move == nil {
			break
		}
		if err := applyMove(game, p.Move.UCI, p.FEN); err != nil {
			break
		}
	}
	book := bookECO()
	if book == nil {
		return nil
	}
	eco := book.Find(game.Moves())
	if eco == nil {
		return nil
	}
	return &reportdto.Opening{ECO: eco.Code(), Name: eco.Title()}
}
