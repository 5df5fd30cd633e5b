// Package history implements the bounded, ordered log of committed
// calculations and its line-oriented file format.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeycumines/rofi-calc/internal/calc"
	"github.com/joeycumines/rofi-calc/internal/storage"
)

// Separator joins expression and result in a serialized entry. Only the
// rightmost occurrence in a line is structural.
const Separator = " = "

// DefaultLength is the capacity used when none is configured.
const DefaultLength = 100

const (
	saveLockAttempts = 20
	saveLockDelay    = 25 * time.Millisecond
)

var (
	ErrIndexOutOfRange     = errors.New("history index out of range")
	ErrMalformedAssignment = errors.New("malformed assignment")
)

// Entry is one committed calculation.
type Entry struct {
	Expression   string
	Result       string
	Persistent   bool
	IsAssignment bool
}

// String returns the serialized form of the entry.
func (e Entry) String() string {
	if e.IsAssignment {
		return e.Expression
	}
	return e.Expression + Separator + e.Result
}

// Options configures a Store.
type Options struct {
	// Capacity bounds the number of entries; values < 1 mean DefaultLength.
	Capacity int
	// LoadVariables registers assignments found by Load with the engine.
	LoadVariables bool
	// OnlyResults drops the expression of appended non-assignment entries.
	OnlyResults bool
	Logger      *slog.Logger
}

// Store is the history log. It is not safe for concurrent use; it belongs
// to the goroutine driving the session.
type Store struct {
	vars    calc.Variables
	opts    Options
	logger  *slog.Logger
	entries []Entry
}

// NewStore returns an empty store. vars classifies assignments and receives
// variable registrations and deletions.
func NewStore(vars calc.Variables, opts Options) *Store {
	if opts.Capacity < 1 {
		opts.Capacity = DefaultLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{vars: vars, opts: opts, logger: logger}
}

func (s *Store) Capacity() int { return s.opts.Capacity }
func (s *Store) Len() int      { return len(s.entries) }

// At returns the entry at index i, oldest first.
func (s *Store) At(i int) (Entry, error) {
	if i < 0 || i >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return s.entries[i], nil
}

// Entries returns a copy of the entries, oldest first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Append records a calculation, evicting the oldest entry when full. It is
// a no-op, returning false, when expression or result is empty.
func (s *Store) Append(expression, result string, persistent bool) bool {
	if expression == "" || result == "" {
		s.logger.Debug("not appending to history, no data")
		return false
	}
	if len(s.entries) >= s.opts.Capacity {
		s.logger.Debug("evicting oldest history entry", "expression", s.entries[0].Expression)
		s.entries = append(s.entries[:0], s.entries[1:]...)
	}
	entry := Entry{Expression: expression, Result: result, Persistent: persistent}
	if s.vars.IsAssignment(expression) {
		// "a = 20" is stored as is rather than as "a = 20 = 20".
		entry.Result = ""
		entry.IsAssignment = true
	} else if s.opts.OnlyResults {
		entry.Expression = ""
	}
	s.logger.Debug("appending to history", "entry", entry.String(), "persistent", persistent)
	s.entries = append(s.entries, entry)
	return true
}

// Erase removes the entry at index i. Removing an assignment also deletes
// the variable it defined.
func (s *Store) Erase(i int) error {
	entry, err := s.At(i)
	if err != nil {
		return err
	}
	if entry.IsAssignment {
		name, _, ok := calc.ParseAssignment(entry.Expression)
		if !ok {
			return fmt.Errorf("%w: %q", ErrMalformedAssignment, entry.Expression)
		}
		if err := s.vars.DeleteVariable(name); err != nil {
			if !errors.Is(err, calc.ErrUnknownVariable) {
				return fmt.Errorf("failed to delete variable %s: %w", name, err)
			}
			s.logger.Debug("assignment had no live variable", "name", name)
		} else {
			s.logger.Debug("deleted variable defined by history entry", "name", name)
		}
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

// Load replaces the store's contents with the history file at path,
// creating its directory. A missing file yields an empty store. On error
// the store is left unchanged.
func (s *Store) Load(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no history file", "path", path)
			s.entries = nil
			return nil
		}
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()
	s.logger.Debug("loading history", "path", path)
	return s.Decode(f)
}

// Decode replaces the store's contents with entries read from r. All
// loaded entries are persistent. Reading stops once the store is full.
func (s *Store) Decode(r io.Reader) error {
	var (
		entries     []Entry
		assignments []string
		truncated   bool
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(entries) >= s.opts.Capacity {
			truncated = true
			break
		}
		entries = append(entries, parseLine(line, s.vars))
		if entries[len(entries)-1].IsAssignment {
			assignments = append(assignments, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if truncated {
		s.logger.Warn("history reading stopped, file longer than history length", "capacity", s.opts.Capacity)
	}

	s.entries = entries
	if s.opts.LoadVariables {
		for _, line := range assignments {
			s.registerVariable(line)
		}
	}
	return nil
}

func parseLine(line string, vars calc.Variables) Entry {
	if vars.IsAssignment(line) {
		return Entry{Expression: line, Persistent: true, IsAssignment: true}
	}
	if i := strings.LastIndex(line, Separator); i >= 0 {
		return Entry{Expression: line[:i], Result: line[i+len(Separator):], Persistent: true}
	}
	return Entry{Result: line, Persistent: true}
}

func (s *Store) registerVariable(line string) {
	name, value, ok := calc.ParseAssignment(line)
	if !ok {
		return
	}
	if err := s.vars.DefineVariable(name, value); err != nil {
		s.logger.Warn("failed to load history variable", "name", name, "error", err)
		return
	}
	s.logger.Info("loaded history variable", "name", name, "value", value)
}

// Marshal serializes the persistent entries, one per line.
func (s *Store) Marshal() []byte {
	size := 0
	for _, e := range s.entries {
		if e.Persistent {
			size += len(e.String()) + 1
		}
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, e := range s.entries {
		if !e.Persistent {
			continue
		}
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Save atomically writes the persistent entries to path while holding the
// history file lock. Temporary entries are not written.
func (s *Store) Save(path string) error {
	data := s.Marshal()
	s.logger.Debug("saving history", "path", path, "bytes", len(data))
	err := storage.WithFileLock(path, saveLockAttempts, saveLockDelay, func() error {
		return storage.AtomicWriteFile(path, data, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
