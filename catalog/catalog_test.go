package catalog

import (
	"errors"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	songs := Default()
	if len(songs) != 50 {
		t.Fatalf("len = %d, want 50", len(songs))
	}
	songs[0].Year = 1
	if Default()[0].Year == 1 {
		t.Error("Default returned shared slice")
	}
}

func TestLoad(t *testing.T) {
	songs, err := Load(strings.NewReader(`[{"id":1,"title":"A","artist":"B","year":1999}]`))
	if err != nil || len(songs) != 1 || songs[0].Year != 1999 {
		t.Fatalf("Load = %v, %v", songs, err)
	}

	if _, err := Load(strings.NewReader(`[]`)); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty catalog: %v", err)
	}
	if _, err := Load(strings.NewReader(`[{"id":1,"year":1990},{"id":1,"year":1991}]`)); err == nil {
		t.Error("duplicate ids accepted")
	}
	if _, err := Load(strings.NewReader(`[{"id":1}]`)); err == nil {
		t.Error("missing year accepted")
	}
}
