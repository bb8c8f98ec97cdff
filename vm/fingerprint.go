package vm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is canonical so equal programs always encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireInstruction is the encoded form of an Instruction. Kind is 0 when
// the instruction has no payload.
type wireInstruction struct {
	_    struct{} `cbor:",toarray"`
	Code uint8
	Kind uint8
	Int  int64
	Bool bool
}

// wireFunction is the encoded form of a FunctionDefinition. Names are
// diagnostic only and are left out.
type wireFunction struct {
	_         struct{} `cbor:",toarray"`
	In        []uint8
	Out       []uint8
	Variables int
	Code      []wireInstruction
}

func toWire(functions []FunctionDefinition) []wireFunction {
	out := make([]wireFunction, len(functions))
	for i := range functions {
		def := &functions[i]
		wf := wireFunction{
			In:        typeCodes(def.InParams),
			Out:       typeCodes(def.OutParams),
			Variables: def.VariableCount,
			Code:      make([]wireInstruction, len(def.Code)),
		}
		for j, in := range def.Code {
			wi := wireInstruction{Code: uint8(in.Code)}
			switch d := in.Data.(type) {
			case Integer:
				wi.Kind = uint8(TypeInteger)
				wi.Int = int64(d)
			case Boolean:
				wi.Kind = uint8(TypeBoolean)
				wi.Bool = bool(d)
			}
			wf.Code[j] = wi
		}
		out[i] = wf
	}
	return out
}

func typeCodes(types []Type) []uint8 {
	codes := make([]uint8, len(types))
	for i, t := range types {
		codes[i] = uint8(t)
	}
	return codes
}

// MarshalFunctions encodes functions to canonical CBOR. Names are not
// part of the encoding.
func MarshalFunctions(functions []FunctionDefinition) ([]byte, error) {
	return cborEncMode.Marshal(toWire(functions))
}

// Fingerprint returns the hex SHA-256 of the canonical CBOR encoding of the
// machine's functions. Two machines built from the same code, signatures
// and variable counts share a fingerprint regardless of function names.
func (m *Machine) Fingerprint() (string, error) {
	m.fingerprintOnce.Do(func() {
		data, err := MarshalFunctions(m.functions)
		if err != nil {
			m.fingerprintErr = fmt.Errorf("vm: fingerprint: %w", err)
			return
		}
		sum := sha256.Sum256(data)
		m.fingerprint = hex.EncodeToString(sum[:])
	})
	return m.fingerprint, m.fingerprintErr
}
