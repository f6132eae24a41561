package feedback

import (
	"testing"

	"go.uber.org/zap"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Player = &r
	p.Play(Join)
	p.Play(Win)
	if got := r.Events(); len(got) != 2 || got[0] != Join || got[1] != Win {
		t.Errorf("events = %v", got)
	}
}

func TestAdaptersDoNotPanic(t *testing.T) {
	Nop{}.Play(Tick)
	Logger{}.Play(Tick)
	Logger{Log: zap.NewNop().Sugar()}.Play(Correct)
}
