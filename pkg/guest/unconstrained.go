package guest

import "github.com/fortiblox/zilkworm/pkg/abi"

// Unconstrained runs fn inside an unconstrained region and reports
// whether the host executed it. Any memory fn writes is discarded when
// the region ends; results must be passed back with WriteHint. Callers
// must behave correctly when fn is skipped.
func Unconstrained(env *abi.Env, fn func()) bool {
	scope, run := env.EnterUnconstrained()
	if run {
		fn()
	}
	scope.Exit()
	return run
}
