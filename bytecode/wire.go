package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the current wire format version.
// Increment when making incompatible changes to the format.
const FormatVersion uint16 = 1

// Magic identifies serialized programs: "LGBC" (Luiggi ByteCode).
const Magic = "LGBC"

// ErrBadMagic is returned when decoding data that is not a serialized program.
var ErrBadMagic = errors.New("bytecode: invalid magic")

// envelope is the top-level wire structure.
type envelope struct {
	Magic   string   `cbor:"1,keyasint"`
	Version uint16   `cbor:"2,keyasint"`
	Program *Program `cbor:"3,keyasint"`
}

// cborEncMode uses canonical mode so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a program to CBOR bytes.
func Marshal(p *Program) ([]byte, error) {
	if p == nil {
		return nil, errors.New("bytecode: marshal nil program")
	}
	return cborEncMode.Marshal(&envelope{
		Magic:   Magic,
		Version: FormatVersion,
		Program: p,
	})
}

// Unmarshal deserializes a program from CBOR bytes.
func Unmarshal(data []byte) (*Program, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if env.Magic != Magic {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrBadMagic, Magic, env.Magic)
	}
	if env.Version > FormatVersion {
		return nil, fmt.Errorf("bytecode: format version %d is newer than supported version %d", env.Version, FormatVersion)
	}
	if env.Program == nil || env.Program.Main() == nil {
		return nil, errors.New("bytecode: program has no top-level function")
	}

	for name, fn := range env.Program.Functions {
		if fn.Variables == nil {
			fn.Variables = make(map[string]*Variable)
		}
		if fn.Name != name {
			return nil, fmt.Errorf("bytecode: function stored under %q is named %q", name, fn.Name)
		}
	}
	return env.Program, nil
}
