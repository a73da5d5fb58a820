package validation

import (
	"errors"
	"fmt"
	"io"

	"github.com/serpro69/gh-backport/internal/logger"
)

// FailedError is returned by the gate for a violation of an enabled rule
type FailedError struct {
	Rule    Rule
	Message string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("check failed: %s [%s]", e.Message, e.Rule.Flag())
}

// IsFailedError checks if an error is (or wraps) a FailedError
func IsFailedError(err error) bool {
	var fe *FailedError
	return errors.As(err, &fe)
}

// GateOptions configures a Gate
type GateOptions struct {
	Disabled []Rule
	Silent   bool
	Out      io.Writer
}

// Gate decides what a violation means for the current run: a fatal error,
// a printed warning for disabled rules, or nothing at all in silent mode.
type Gate struct {
	disabled map[Rule]bool
	silent   bool
	out      io.Writer
}

// NewGate creates a new Gate
func NewGate(opts GateOptions) *Gate {
	disabled := make(map[Rule]bool, len(opts.Disabled))
	for _, r := range opts.Disabled {
		disabled[r] = true
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Gate{disabled: disabled, silent: opts.Silent, out: out}
}

// IsDisabled reports whether violations of rule are downgraded to warnings
func (g *Gate) IsDisabled(rule Rule) bool {
	return g.disabled[rule]
}

// IsSilent reports whether the gate swallows violations
func (g *Gate) IsSilent() bool {
	return g.silent
}

// Enforce applies the gate to a rule result. It returns a *FailedError only
// for a violation of an enabled rule outside silent mode.
func (g *Gate) Enforce(res Result) error {
	if res.OK() {
		return nil
	}
	v := res.Violation
	log := logger.Get().With().Str("rule", string(v.Rule)).Logger()

	if g.silent {
		log.Debug().Msg(v.Message)
		return nil
	}
	if g.disabled[v.Rule] {
		log.Warn().Msg("ignoring failed check: " + v.Message)
		fmt.Fprintf(g.out, "ignoring check failed: %s [%s]\n", v.Message, v.Rule.Flag())
		return nil
	}
	return &FailedError{Rule: v.Rule, Message: v.Message}
}
