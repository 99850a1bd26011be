// Package context implements the CompilerContext: a process-scoped, read-only-
// after-init registry of functions, state variables, pragma flags, and the
// current contract's base chain.
package context

import (
	"fmt"
	"strings"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tvmforge/tvmgen/internal/pragma"
)

// FunctionSignature is one registered function's dispatch identity.
type FunctionSignature struct {
	Name         string
	MangledName  string
	Contract     string
	ArgCount     int
	ReturnCount  int
	IsPublic     bool
}

// StateVariable is one non-constant contract storage slot.
type StateVariable struct {
	Name  string
	Index int
}

// firstStateVarIndex is where non-constant state variable numbering starts;
// indices below it are reserved for the c4 persistent-storage layout the
// upstream frontend controls.
const firstStateVarIndex = 10

// Flags is the set of special-handler / pragma-derived booleans detected at
// construction time.
type Flags struct {
	HaveFallback            bool
	HaveReceive             bool
	HaveOnBounce            bool
	HaveOffChainConstructor bool
	HaveAfterSignatureCheck bool
	IgnoreIntOverflow       bool
}

// Contract is the minimal view of a contract declaration this package needs:
// its own name, its linearized list of ancestors (nearest first), and the
// names of the functions it defines.
type Contract struct {
	Name         string
	BaseChain    []string
	Functions    []FunctionDecl
	IsStdlib     bool
}

// FunctionDecl is what the upstream frontend hands in per function: enough
// to register it and detect the special handlers.
type FunctionDecl struct {
	Name        string
	ArgCount    int
	ReturnCount int
	IsPublic    bool
}

// Context is immutable after New returns. It is safe for concurrent read
// access by multiple per-function Emitters.
type Context struct {
	contract  string
	baseChain []string

	functions map[string]*FunctionSignature
	stateVars []StateVariable

	flags Flags
	abi   *pragma.View

	logger  *zap.SugaredLogger
	labelID *atomic.Int64
}

// New constructs a Context for contract, recording its base chain as given,
// registering every function in c.Functions under its mangled name (functions
// of the ancestors named in the base chain are not registered), detecting
// special handlers, and assigning state variable indices from
// firstStateVarIndex upward.
// logger may be nil; when non-nil it receives one debug line per registered
// function. labelID, if nil, is allocated fresh — callers that want a single
// counter shared across concurrently compiled functions should pass their
// own.
func New(c Contract, stateVarNames []string, abi *pragma.View, logger *zap.SugaredLogger, labelID *atomic.Int64) *Context {
	if labelID == nil {
		labelID = atomic.NewInt64(0)
	}

	ctx := &Context{
		contract:  c.Name,
		baseChain: c.BaseChain,
		functions: make(map[string]*FunctionSignature, len(c.Functions)),
		abi:       abi,
		logger:    logger,
		labelID:   labelID,
	}

	for _, fn := range c.Functions {
		mangled := mangleFunctionName(fn.Name, c.IsStdlib)
		ctx.functions[mangled] = &FunctionSignature{
			Name:        fn.Name,
			MangledName: mangled,
			Contract:    c.Name,
			ArgCount:    fn.ArgCount,
			ReturnCount: fn.ReturnCount,
			IsPublic:    fn.IsPublic,
		}
		if logger != nil {
			logger.Debugw("registered function", "contract", c.Name, "mangled", mangled)
		}

		switch fn.Name {
		case "fallback":
			ctx.flags.HaveFallback = true
		case "receive":
			ctx.flags.HaveReceive = true
		case "onBounce":
			ctx.flags.HaveOnBounce = true
		case "offchainConstructor":
			ctx.flags.HaveOffChainConstructor = true
		case "afterSignatureCheck":
			ctx.flags.HaveAfterSignatureCheck = true
		}
	}

	ctx.flags.IgnoreIntOverflow = abi.Bool("ignore_int_overflow")

	for i, name := range stateVarNames {
		ctx.stateVars = append(ctx.stateVars, StateVariable{Name: name, Index: firstStateVarIndex + i})
	}

	return ctx
}

// mangleFunctionName applies the internal-dispatch naming rule: stdlib
// names pass through unchanged, :onCodeUpgrade is a fixed literal,
// everything else picks up an _internal suffix.
func mangleFunctionName(name string, isStdlib bool) string {
	if isStdlib {
		return name
	}
	if name == "onCodeUpgrade" {
		return ":onCodeUpgrade"
	}
	return name + "_internal"
}

// Function looks up a registered function by its mangled name.
func (c *Context) Function(mangledName string) (*FunctionSignature, bool) {
	f, ok := c.functions[mangledName]
	return f, ok
}

// StateVariable looks up a state variable's assigned index by name.
func (c *Context) StateVariable(name string) (StateVariable, bool) {
	for _, sv := range c.stateVars {
		if sv.Name == name {
			return sv, true
		}
	}
	return StateVariable{}, false
}

// StateVariables returns every registered state variable, in assignment
// order.
func (c *Context) StateVariables() []StateVariable {
	return c.stateVars
}

// Contract returns the current contract's name.
func (c *Context) Contract() string {
	return c.contract
}

// BaseChain returns the linearized ancestor chain, nearest first.
func (c *Context) BaseChain() []string {
	return c.baseChain
}

// Flags returns the detected special-handler / pragma flag set.
func (c *Context) Flags() Flags {
	return c.flags
}

// StoreTimestampInC4 reports whether the persistent storage cell must carry
// a message-creation timestamp: the ABI header requests time and no
// afterSignatureCheck hook intercepts replay protection.
func (c *Context) StoreTimestampInC4() bool {
	return c.abi.Bool("header_time") && !c.flags.HaveAfterSignatureCheck
}

// NextLabel returns a fresh, process-wide unique continuation label. Safe to
// call concurrently from multiple per-function Emitters sharing this
// Context.
func (c *Context) NextLabel(prefix string) string {
	id := c.labelID.Inc()
	return fmt.Sprintf("%s_%d", prefix, id)
}

// String renders a short diagnostic summary, mainly for logging.
func (c *Context) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "contract=%s base=[%s] functions=%d stateVars=%d",
		c.contract, strings.Join(c.baseChain, ","), len(c.functions), len(c.stateVars))
	return b.String()
}
