// Package dice implements the player-versus-house dice wager.
// Each side rolls one die; the higher roll wins, equal rolls push.
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	// DefaultBet is the fixed stake of one round.
	DefaultBet int64 = 50

	// Sides of the die.
	Sides = 6
)

// Errors for dice game
var (
	ErrInvalidBet  = errors.New("bet amount must be positive")
	ErrInvalidRoll = errors.New("dice values must be between 1 and 6")
)

// Outcome is the result of one round from the player's side.
type Outcome int

const (
	Lose Outcome = iota
	Tie
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Tie:
		return "tie"
	default:
		return "lose"
	}
}

// Result describes a settled round.
type Result struct {
	PlayerRoll int
	HouseRoll  int
	Outcome    Outcome
	Bet        int64
	// Payout is what is credited back after the bet was taken: 2x bet on a
	// win, the bet on a tie, nothing on a loss.
	Payout int64
}

// Net returns the change to the player's balance over the whole round.
func (r *Result) Net() int64 {
	return r.Payout - r.Bet
}

// Roller draws one die face in [1, Sides].
type Roller interface {
	Roll() int
}

// RollerFunc adapts a function to Roller.
type RollerFunc func() int

// Roll calls f.
func (f RollerFunc) Roll() int { return f() }

// RandomRoller draws from the process-wide generator.
var RandomRoller Roller = RollerFunc(func() int {
	return rand.IntN(Sides) + 1
})

// Settle resolves a round for the given bet and rolls.
func Settle(bet int64, playerRoll, houseRoll int) (*Result, error) {
	if bet <= 0 {
		return nil, ErrInvalidBet
	}
	if !validRoll(playerRoll) || !validRoll(houseRoll) {
		return nil, fmt.Errorf("%w: player=%d house=%d", ErrInvalidRoll, playerRoll, houseRoll)
	}

	res := &Result{PlayerRoll: playerRoll, HouseRoll: houseRoll, Bet: bet}
	switch {
	case playerRoll > houseRoll:
		res.Outcome = Win
		res.Payout = bet * 2
	case playerRoll < houseRoll:
		res.Outcome = Lose
	default:
		res.Outcome = Tie
		res.Payout = bet
	}
	return res, nil
}

func validRoll(v int) bool {
	return v >= 1 && v <= Sides
}

// Game rolls and settles rounds with a fixed bet.
type Game struct {
	bet    int64
	roller Roller
}

// Config holds configuration for the dice game.
type Config struct {
	Bet    int64
	Roller Roller
}

// New creates a Game. Zero values fall back to DefaultBet and RandomRoller.
func New(cfg *Config) *Game {
	g := &Game{bet: DefaultBet, roller: RandomRoller}
	if cfg != nil {
		if cfg.Bet > 0 {
			g.bet = cfg.Bet
		}
		if cfg.Roller != nil {
			g.roller = cfg.Roller
		}
	}
	return g
}

// Bet returns the stake of one round.
func (g *Game) Bet() int64 {
	return g.bet
}

// Play draws the player's die, then the house's, and settles the round.
func (g *Game) Play() (*Result, error) {
	player := g.roller.Roll()
	house := g.roller.Roll()
	return Settle(g.bet, player, house)
}
