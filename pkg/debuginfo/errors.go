package debuginfo

import "errors"

var (
	// ErrSubroutineNotFound is returned when an instruction offset is not
	// covered by any known subprogram range.
	ErrSubroutineNotFound = errors.New("no subroutine covers this instruction offset")

	// ErrEntryTreeCorrupt is returned when a compilation unit's entry tree
	// cannot be decoded. Extraction of that unit is abandoned, other units
	// are unaffected.
	ErrEntryTreeCorrupt = errors.New("corrupt debug info entry tree")

	// ErrTypeMismatch is returned when a variable's type cannot be resolved
	// or its storage is smaller than the type requires. The variable is
	// reported as unavailable.
	ErrTypeMismatch = errors.New("variable type mismatch")

	// ErrVariableNotFound is returned when no variable with the requested
	// name is in scope.
	ErrVariableNotFound = errors.New("no variable with this name in scope")
)
