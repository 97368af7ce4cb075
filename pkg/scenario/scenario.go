// Package scenario describes a sequence of tree operations to visualize and
// plays it as a controller routine.
//
// Scenarios are TOML files:
//
//	name = "Rotations"
//	speed = 2.0
//	step_delay = "500ms"
//
//	[[ops]]
//	kind = "insert"
//	values = [10, 20, 30]
//
//	[[ops]]
//	kind = "delete"
//	values = [20]
//
// A [Player] owns the tree a scenario mutates. Its [Player.Routine] is a
// [controller.RunFunc]: every operation is applied to the tree in one piece,
// then each traced step of that operation is written to the run log with a
// pause point after it. Readers ([Player.Layout], [Player.Values]) therefore
// only ever see a balanced tree.
package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
)

// Kind is a tree operation.
type Kind string

// Supported operations.
const (
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
	KindSearch Kind = "search"
)

// Valid reports whether k is a supported operation.
func (k Kind) Valid() bool {
	switch k {
	case KindInsert, KindDelete, KindSearch:
		return true
	}
	return false
}

// Op applies one operation to each value in order.
type Op struct {
	Kind   Kind  `toml:"kind" json:"kind"`
	Values []int `toml:"values" json:"values"`
}

// Scenario is a named sequence of operations with playback settings.
type Scenario struct {
	Name        string        `toml:"name" json:"name"`
	Description string        `toml:"description,omitempty" json:"description,omitempty"`
	Speed       float64       `toml:"speed,omitempty" json:"speed,omitempty"`           // 0 keeps the current speed
	StepDelay   time.Duration `toml:"step_delay,omitempty" json:"step_delay,omitempty"` // 0 uses the configured delay
	Ops         []Op          `toml:"ops" json:"ops"`
}

// New builds a scenario from operations.
func New(name string, ops ...Op) *Scenario {
	return &Scenario{Name: name, Ops: ops}
}

// Insert is shorthand for an insert Op.
func Insert(values ...int) Op { return Op{Kind: KindInsert, Values: values} }

// Delete is shorthand for a delete Op.
func Delete(values ...int) Op { return Op{Kind: KindDelete, Values: values} }

// Search is shorthand for a search Op.
func Search(values ...int) Op { return Op{Kind: KindSearch, Values: values} }

// Default returns the built-in demonstration: every rotation case on insert,
// a two-child delete and a hit and a miss on search.
func Default() *Scenario {
	return &Scenario{
		Name:        "AVL Tree",
		Description: "Single and double rotations on insert, successor delete, search",
		Ops: []Op{
			Insert(10, 20, 30),
			Insert(5, 4),
			Insert(25, 27),
			Insert(8, 9),
			Delete(20),
			Search(27, 99),
		},
	}
}

// Steps returns the number of individual operations in s.
func (s *Scenario) Steps() int {
	n := 0
	for _, op := range s.Ops {
		n += len(op.Values)
	}
	return n
}

// Validate checks that s can be played.
func (s *Scenario) Validate() error {
	if err := apperrors.ValidateDisplayName(s.Name); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidScenario, err, "invalid name")
	}
	if s.Speed < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidScenario, "speed must not be negative")
	}
	if s.StepDelay < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidScenario, "step_delay must not be negative")
	}
	if len(s.Ops) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidScenario, "scenario %q has no operations", s.Name)
	}
	for i, op := range s.Ops {
		if !op.Kind.Valid() {
			return apperrors.New(apperrors.ErrCodeInvalidScenario,
				"ops[%d]: unknown kind %q (want insert, delete or search)", i, op.Kind)
		}
		if len(op.Values) == 0 {
			return apperrors.New(apperrors.ErrCodeInvalidScenario, "ops[%d]: no values", i)
		}
	}
	return nil
}

// Decode reads and validates a TOML scenario. Unknown keys are rejected.
func Decode(r io.Reader) (*Scenario, error) {
	var s Scenario
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidScenario, err, "parse scenario")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, apperrors.New(apperrors.ErrCodeInvalidScenario,
			"unknown keys: %s", strings.Join(keys, ", "))
	}
	for i := range s.Ops {
		s.Ops[i].Kind = Kind(strings.ToLower(string(s.Ops[i].Kind)))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Parse decodes a scenario from a string.
func Parse(data string) (*Scenario, error) {
	return Decode(strings.NewReader(data))
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "scenario %s", path)
		}
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Encode writes s as TOML.
func (s *Scenario) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// String returns s as TOML.
func (s *Scenario) String() string {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return fmt.Sprintf("scenario %q: %v", s.Name, err)
	}
	return buf.String()
}
