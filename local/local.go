// Package local runs a pass-the-device game: players share one screen and
// take turns placing the song in play on their own timeline.
package local

import (
	"errors"
	"fmt"

	"github.com/wfunc/gombiful/deck"
	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/rules"
)

const MaxPlayers = 4

var (
	ErrPlayerCount      = fmt.Errorf("local games need 1 to %d players", MaxPlayers)
	ErrCatalogTooSmall  = errors.New("catalog too small for this many players")
	ErrGameOver         = errors.New("game is over")
	ErrInvalidPlacement = errors.New("Invalid placement position")
)

// Turn reports what happened to the player whose turn just ended.
type Turn struct {
	Player  int
	Song    models.Song
	Result  models.RoundResult
	Granted bool
	Won     bool
}

type Game struct {
	cfg     rules.Config
	dealer  *deck.Dealer
	catalog []models.Song
	pool    []models.Song

	Players []*models.Player
	turn    int
	current *models.Song
	winner  int
}

// New seats one player per name, each with a distinct starting card, and
// draws the first song.
func New(cfg rules.Config, dealer *deck.Dealer, catalog []models.Song, names []string) (*Game, error) {
	if len(names) < 1 || len(names) > MaxPlayers {
		return nil, ErrPlayerCount
	}
	if len(catalog) < len(names)+1 {
		return nil, ErrCatalogTooSmall
	}
	if dealer == nil {
		dealer = deck.NewDealer(nil)
	}
	shuffled := dealer.Shuffle(catalog)
	g := &Game{
		cfg:     cfg,
		dealer:  dealer,
		catalog: append([]models.Song(nil), catalog...),
		pool:    shuffled[len(names):],
		winner:  -1,
	}
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		g.Players = append(g.Players, rules.NewPlayer(cfg, name, shuffled[i], int64(i), false))
	}
	g.draw()
	return g, nil
}

func (g *Game) Turn() int { return g.turn }

func (g *Game) CurrentPlayer() *models.Player { return g.Players[g.turn] }

// Current is the song being guessed.
func (g *Game) Current() *models.Song { return g.current }

func (g *Game) Remaining() int { return len(g.pool) }

// Winner returns the seat that reached the winning score.
func (g *Game) Winner() (int, *models.Player, bool) {
	if g.winner < 0 {
		return -1, nil, false
	}
	return g.winner, g.Players[g.winner], true
}

func (g *Game) Over() bool { return g.winner >= 0 }

// Place puts the current song at index on the current player's timeline,
// scores it and passes the turn.
func (g *Game) Place(index int) (*Turn, error) {
	if g.Over() {
		return nil, ErrGameOver
	}
	p := g.CurrentPlayer()
	if index < 0 || index > len(p.Timeline) {
		return nil, ErrInvalidPlacement
	}
	song := *g.current
	p.HasAnswered = true
	p.PlacementIndex = models.PlacedAt(index)
	res := rules.Judge(p, song)
	t := &Turn{Player: g.turn, Song: song, Result: res}
	t.Granted = rules.Commit(g.cfg, p, res)
	logger.Log.Debugf("local: %s placed %d at %d: %v", p.Name, song.Year, index, res.Correct)

	if p.Score >= g.cfg.WinningScore {
		g.winner = g.turn
		t.Won = true
		return t, nil
	}
	g.next()
	return t, nil
}

// SkipWithToken discards the current song for a fresh one; the turn stays.
func (g *Game) SkipWithToken() error {
	if g.Over() {
		return ErrGameOver
	}
	p := g.CurrentPlayer()
	tokens, err := rules.Spend(p.Tokens, g.cfg.TokenCostSkip)
	if err != nil {
		return err
	}
	p.Tokens = tokens
	g.draw()
	return nil
}

// AutoCard buys a card from the pool, placed in order, and passes the turn.
func (g *Game) AutoCard() (*Turn, error) {
	if g.Over() {
		return nil, ErrGameOver
	}
	p := g.CurrentPlayer()
	tokens, err := rules.Spend(p.Tokens, g.cfg.TokenCostAuto)
	if err != nil {
		return nil, err
	}
	g.refill()
	song, rest := g.dealer.DrawOne(g.pool)
	if song == nil {
		return nil, ErrCatalogTooSmall
	}
	g.pool = rest
	p.Tokens = tokens
	p.Timeline = rules.AutoPlace(p.Timeline, *song)
	p.Score = len(p.Timeline)

	t := &Turn{Player: g.turn, Song: *song, Result: models.RoundResult{Correct: true, NewTimeline: p.Timeline}}
	if p.Score >= g.cfg.WinningScore {
		g.winner = g.turn
		t.Won = true
		return t, nil
	}
	g.next()
	return t, nil
}

func (g *Game) next() {
	g.turn = (g.turn + 1) % len(g.Players)
	g.draw()
}

func (g *Game) draw() {
	g.refill()
	g.current, g.pool = g.dealer.DrawOne(g.pool)
}

// refill recycles the catalog once the pool runs dry, leaving out songs
// already on a timeline when that still leaves something to draw.
func (g *Game) refill() {
	if len(g.pool) > 0 {
		return
	}
	placed := make(map[int]bool)
	for _, p := range g.Players {
		for _, s := range p.Timeline {
			placed[s.ID] = true
		}
	}
	var fresh []models.Song
	for _, s := range g.catalog {
		if !placed[s.ID] {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 {
		fresh = g.catalog
	}
	logger.Log.Debugf("local: recycling %d songs", len(fresh))
	g.pool = g.dealer.Shuffle(fresh)
}
