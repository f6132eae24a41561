// Package catalog provides the song list sessions are dealt from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wfunc/gombiful/models"
)

//go:embed songs.json
var defaultSongs []byte

var ErrEmpty = errors.New("catalog: no songs")

// Default returns a fresh copy of the built-in 50-song catalog.
func Default() []models.Song {
	songs, err := decode(defaultSongs)
	if err != nil {
		panic("catalog: built-in songs are invalid: " + err.Error())
	}
	return songs
}

// Load reads a JSON array of songs and validates it.
func Load(r io.Reader) ([]models.Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return decode(data)
}

// LoadFile loads a catalog from path, or the built-in one when path is empty.
func LoadFile(path string) ([]models.Song, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func decode(data []byte) ([]models.Song, error) {
	var songs []models.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := Validate(songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// Validate requires at least one song, unique ids and a year on every song.
func Validate(songs []models.Song) error {
	if len(songs) == 0 {
		return ErrEmpty
	}
	seen := make(map[int]bool, len(songs))
	for _, s := range songs {
		if seen[s.ID] {
			return fmt.Errorf("catalog: duplicate song id %d", s.ID)
		}
		seen[s.ID] = true
		if s.Year <= 0 {
			return fmt.Errorf("catalog: song %d (%q) has no year", s.ID, s.Title)
		}
	}
	return nil
}
