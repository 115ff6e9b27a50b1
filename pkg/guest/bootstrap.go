// Package guest is the runtime a guest program is written against:
// program bootstrap, typed input and output over the hint and public
// values channels, and unconstrained regions.
package guest

import (
	"github.com/fortiblox/zilkworm/pkg/abi"
)

// Routine is a start-up routine.
type Routine func(env *abi.Env)

// Program is a guest program: its start-up routines and its main.
type Program struct {
	Name    string
	Version string

	preInit []Routine
	init    []Routine
	fini    []Routine
	main    Routine
}

// NewProgram creates a program around main.
func NewProgram(name, version string, main Routine) *Program {
	return &Program{Name: name, Version: version, main: main}
}

// PreInit registers a routine that runs before every init routine.
func (p *Program) PreInit(r Routine) *Program {
	p.preInit = append(p.preInit, r)
	return p
}

// Init registers a routine that runs before main.
func (p *Program) Init(r Routine) *Program {
	p.init = append(p.init, r)
	return p
}

// Fini registers a finaliser. The guest halts straight after main, so
// finalisers are never run; they are kept for programs that register them
// unconditionally.
func (p *Program) Fini(r Routine) *Program {
	p.fini = append(p.fini, r)
	return p
}

// Routines returns the number of registered pre-init, init and fini
// routines.
func (p *Program) Routines() (preInit, init, fini int) {
	return len(p.preInit), len(p.init), len(p.fini)
}

// Entrypoint returns the guest entry point: pre-init routines in
// registration order, then init routines in registration order, then
// main, then commit of the public values digest and HALT(0).
func (p *Program) Entrypoint() func(env *abi.Env) {
	return func(env *abi.Env) {
		for _, r := range p.preInit {
			r(env)
		}
		for _, r := range p.init {
			r(env)
		}
		p.main(env)
		env.Exit(0)
	}
}
