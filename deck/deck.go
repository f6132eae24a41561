// Package deck shuffles and draws songs from a session's pool.
package deck

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/gombiful/models"
)

// Dealer is a concurrency-safe source of shuffles and draws.
type Dealer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDealer constructs a Dealer with the provided rng or a time-seeded default.
func NewDealer(rng *rand.Rand) *Dealer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dealer{rng: rng}
}

// Shuffle returns a uniformly permuted copy of songs.
func (d *Dealer) Shuffle(songs []models.Song) []models.Song {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Shuffle(d.rng, songs)
}

// DrawOne removes a random song from pool, see DrawOne.
func (d *Dealer) DrawOne(pool []models.Song) (*models.Song, []models.Song) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DrawOne(d.rng, pool)
}

// Shuffle returns a permuted copy of songs. The input is left untouched.
func Shuffle(rng *rand.Rand, songs []models.Song) []models.Song {
	out := make([]models.Song, len(songs))
	copy(out, songs)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// DrawOne picks a uniformly random song and returns it with the rest of the
// pool. An empty pool yields (nil, empty pool).
func DrawOne(rng *rand.Rand, pool []models.Song) (*models.Song, []models.Song) {
	if len(pool) == 0 {
		return nil, []models.Song{}
	}
	i := rng.Intn(len(pool))
	song := pool[i]
	rest := make([]models.Song, 0, len(pool)-1)
	rest = append(rest, pool[:i]...)
	rest = append(rest, pool[i+1:]...)
	return &song, rest
}
