package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/arborate/asm"
	"github.com/chazu/arborate/vm"
)

// Program is a TOML program file: an ordered list of [[function]] tables.
// Function indices used by CallFunction are positions in this list.
type Program struct {
	Functions []Function `toml:"function"`

	// Path is the file the program was loaded from (set at load time).
	Path string `toml:"-"`
}

// Function is one [[function]] table.
type Function struct {
	Name      string   `toml:"name"`
	In        []string `toml:"in"`
	Out       []string `toml:"out"`
	Variables int      `toml:"variables"`
	Code      Listing  `toml:"code"`
}

// Listing is assembler text, written either as one multi-line string or
// as an array of lines.
type Listing []string

// UnmarshalTOML implements toml.Unmarshaler.
func (l *Listing) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*l = strings.Split(v, "\n")
	case []any:
		lines := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("code line %d: expected a string, got %T", i+1, item)
			}
			lines[i] = s
		}
		*l = lines
	default:
		return fmt.Errorf("code: expected a string or an array of strings, got %T", data)
	}
	return nil
}

// LoadProgram reads a program file.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := ParseProgram(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// ParseProgram decodes program TOML text.
func ParseProgram(text string) (*Program, error) {
	var p Program
	if _, err := toml.Decode(text, &p); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if len(p.Functions) == 0 {
		return nil, fmt.Errorf("no [[function]] tables")
	}
	return &p, nil
}

// Definitions assembles every function. The result is not verified;
// vm.New does that.
func (p *Program) Definitions() ([]vm.FunctionDefinition, error) {
	defs := make([]vm.FunctionDefinition, len(p.Functions))
	for i, f := range p.Functions {
		def, err := f.definition()
		if err != nil {
			return nil, fmt.Errorf("function %d (%s): %w", i, f.Name, err)
		}
		defs[i] = def
	}
	return defs, nil
}

func (f Function) definition() (vm.FunctionDefinition, error) {
	in, err := parseTypes(f.In)
	if err != nil {
		return vm.FunctionDefinition{}, fmt.Errorf("in: %w", err)
	}
	out, err := parseTypes(f.Out)
	if err != nil {
		return vm.FunctionDefinition{}, fmt.Errorf("out: %w", err)
	}
	code, err := asm.Parse(strings.Join(f.Code, "\n"))
	if err != nil {
		return vm.FunctionDefinition{}, fmt.Errorf("code: %w", err)
	}
	return vm.FunctionDefinition{
		Name:          f.Name,
		Code:          code,
		InParams:      in,
		OutParams:     out,
		VariableCount: f.Variables,
	}, nil
}

func parseTypes(names []string) ([]vm.Type, error) {
	types := make([]vm.Type, len(names))
	for i, name := range names {
		t, err := asm.ParseType(name)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// Index resolves an entry point given as a function index or name.
func (p *Program) Index(entry string) (int, error) {
	entry = strings.TrimSpace(entry)
	if n, err := strconv.Atoi(entry); err == nil {
		if n < 0 || n >= len(p.Functions) {
			return 0, fmt.Errorf("function index %d outside [0, %d)", n, len(p.Functions))
		}
		return n, nil
	}
	for i, f := range p.Functions {
		if f.Name == entry {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no function named %q", entry)
}

// Machine assembles and verifies the program.
func (p *Program) Machine(opts ...vm.Option) (*vm.Machine, error) {
	defs, err := p.Definitions()
	if err != nil {
		return nil, err
	}
	return vm.New(defs, opts...)
}
