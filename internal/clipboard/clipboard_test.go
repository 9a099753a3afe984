package clipboard

import (
	"errors"
	"os"
	"strings"
	"testing"
)

type fakeMechanism struct {
	name   string
	err    error
	copied []string
}

func (f *fakeMechanism) Name() string { return f.name }

func (f *fakeMechanism) Copy(text string) error {
	f.copied = append(f.copied, text)
	return f.err
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	broken := &fakeMechanism{name: "broken", err: errors.New("nope")}
	good := &fakeMechanism{name: "good"}
	spare := &fakeMechanism{name: "spare"}

	name, err := NewChainWith(broken, good, spare).Copy("ls -la")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if name != "good" {
		t.Fatalf("winner = %q", name)
	}
	if len(broken.copied) != 1 || len(good.copied) != 1 {
		t.Fatal("both broken and good should have been tried")
	}
	if len(spare.copied) != 0 {
		t.Fatal("chain must stop after the first success")
	}
}

func TestChainCollectsFailures(t *testing.T) {
	a := &fakeMechanism{name: "a", err: errors.New("reason one")}
	b := &fakeMechanism{name: "b", err: errors.New("reason two")}

	_, err := NewChainWith(a, b).Copy("x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "reason one") || !strings.Contains(msg, "reason two") {
		t.Fatalf("reasons missing from %q", msg)
	}
}

func TestChainEmpty(t *testing.T) {
	if _, err := NewChainWith().Copy("x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

type fakeBuffer struct {
	text string
	err  error
}

func (f *fakeBuffer) SetBuffer(text string) error {
	f.text = text
	return f.err
}

func TestNewChainSkipsTmuxWithoutBuffer(t *testing.T) {
	c := NewChain([]string{"native", "osc52", "tmux"}, nil)
	if len(c.mechanisms) != 2 {
		t.Fatalf("mechanisms = %d, want tmux skipped", len(c.mechanisms))
	}

	c = NewChain([]string{"tmux"}, &fakeBuffer{})
	if len(c.mechanisms) != 1 {
		t.Fatalf("mechanisms = %d", len(c.mechanisms))
	}
}

func TestTmuxMechanism(t *testing.T) {
	buf := &fakeBuffer{}
	m := &tmuxMechanism{buf: buf}
	if err := m.Copy("git push"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if buf.text != "git push" {
		t.Fatalf("buffer = %q", buf.text)
	}

	buf.err = errors.New("no server")
	if err := m.Copy("x"); err == nil {
		t.Fatal("buffer failure should propagate")
	}
}

func TestOSC52RequiresTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	m := &osc52Mechanism{out: w}
	if err := m.Copy("x"); err == nil {
		t.Fatal("a pipe is not a terminal; Copy should fail so the chain moves on")
	}
}
