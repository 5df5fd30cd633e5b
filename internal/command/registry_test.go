package command

import (
	"context"
	"io"
	"reflect"
	"testing"
)

type stubCommand struct {
	*BaseCommand
	ran bool
}

func newStubCommand(name string) *stubCommand {
	return &stubCommand{BaseCommand: NewBaseCommand(name, "stub "+name, name)}
}

func (c *stubCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c.ran = true
	return nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	eval := newStubCommand("eval")
	r.Register(newStubCommand("launch"))
	r.Register(eval, "calc", "=")

	cmd, err := r.Get("eval")
	if err != nil || cmd != Command(eval) {
		t.Fatalf("Get(eval) = %v, %v", cmd, err)
	}
	for _, alias := range []string{"calc", "="} {
		if cmd, err := r.Get(alias); err != nil || cmd != Command(eval) {
			t.Fatalf("Get(%q) = %v, %v", alias, cmd, err)
		}
	}
	if _, err := r.Get("nonexistent"); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if got := r.List(); !reflect.DeepEqual(got, []string{"eval", "launch"}) {
		t.Fatalf("List() = %v", got)
	}
}

func TestRegistry_ReplaceByName(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	first, second := newStubCommand("x"), newStubCommand("x")
	r.Register(first)
	r.Register(second)
	cmd, _ := r.Get("x")
	if cmd != Command(second) {
		t.Fatal("expected the later registration to win")
	}
	if len(r.List()) != 1 {
		t.Fatalf("List() = %v", r.List())
	}
}
