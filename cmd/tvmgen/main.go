// Command tvmgen drives the code-emission core over a small, literal
// contract descriptor and prints the resulting TVM assembly listing. The
// real AST/type-checker/StructCompiler frontend is out of scope for this
// core, so this harness stands in for it with an in-memory function list —
// enough to exercise every package end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tvmforge/tvmgen/internal/context"
	"github.com/tvmforge/tvmgen/internal/diag"
	"github.com/tvmforge/tvmgen/internal/dictops"
	"github.com/tvmforge/tvmgen/internal/emitter"
	"github.com/tvmforge/tvmgen/internal/msginfo"
	"github.com/tvmforge/tvmgen/internal/pragma"
	"github.com/tvmforge/tvmgen/internal/types"
)

var (
	configPath = flag.String("config", "", "Path to tvmgen.toml (defaults to a conservative built-in ABI)")
	outputPath = flag.String("o", "", "Write assembly listing to this file instead of stdout")
	verbose    = flag.Bool("verbose", false, "Enable debug-level operational logging")
)

func main() {
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	sugar := logger.Sugar()

	abi, err := loadAbi(*configPath, sugar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tvmgen: %v\n", err)
		os.Exit(1)
	}

	contract := context.Contract{
		Name:      "Wallet",
		BaseChain: []string{"Wallet"},
		Functions: []context.FunctionDecl{
			{Name: "transfer", ArgCount: 2, ReturnCount: 0, IsPublic: true},
			{Name: "getBalance", ArgCount: 1, ReturnCount: 1, IsPublic: true},
			{Name: "fallback", ArgCount: 0, ReturnCount: 0},
		},
	}
	stateVars := []string{"balances", "seqno"}

	labelCounter := atomic.NewInt64(0)
	ctx := context.New(contract, stateVars, abi, sugar, labelCounter)
	sugar.Infow("compilation unit ready", "context", ctx.String())

	listings, err := compileConcurrently(ctx, contract.Functions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tvmgen: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tvmgen: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	for _, fn := range contract.Functions {
		fmt.Fprintf(out, "; %s\n%s\n", fn.Name, listings[fn.Name])
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		// zap's own construction failing means stderr logging is the only
		// option left.
		fmt.Fprintf(os.Stderr, "tvmgen: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func loadAbi(path string, sugar *zap.SugaredLogger) (*pragma.View, error) {
	if path == "" {
		sugar.Debug("no -config given, using a conservative built-in ABI")
		return pragma.GenerateDefault(), nil
	}
	view, err := pragma.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading ABI/pragma file: %w", err)
	}
	return view, nil
}

// compileConcurrently gives every function its own goroutine and Emitter,
// sharing only the immutable Context (and, through it, the atomic label
// counter) — safe because Context never mutates after construction.
func compileConcurrently(ctx *context.Context, fns []context.FunctionDecl) (map[string]string, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]string, len(fns))
		reports = diag.NewReporter()
	)

	for _, fn := range fns {
		wg.Add(1)
		go func(fn context.FunctionDecl) {
			defer wg.Done()
			rendered, bug := compileOne(ctx, fn)
			mu.Lock()
			defer mu.Unlock()
			if bug != nil {
				reports.Report(bug)
				return
			}
			results[fn.Name] = rendered
		}(fn)
	}
	wg.Wait()

	if reports.HasErrors() {
		return nil, reports.Fatal()
	}
	return results, nil
}

// compileOne emits one function's illustrative body and renders its
// CodeBuffer. Any internal invariant panic (diag.Bug) is converted into a
// diagnostic rather than crashing the whole compilation unit.
func compileOne(ctx *context.Context, fn context.FunctionDecl) (rendered string, bug *diag.Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(diag.Bug)
			if !ok {
				panic(r)
			}
			bug = diag.New(diag.CodeUnsupportedValueType, b.At, "%s", b.Assertion)
		}
	}()

	e := emitter.New(fn.Name, fn.ArgCount)

	switch fn.Name {
	case "transfer":
		emitTransfer(ctx, e)
	case "getBalance":
		emitGetBalance(ctx, e)
	case "fallback":
		e.Ret()
	default:
		e.Ret()
	}

	e.TryPollLastRet()
	return e.Code.Render("\t"), nil
}

// emitTransfer models "balances[dest] = amount; send(dest, amount)": a
// dictionary Set keyed by address followed by an internal message send with
// only dest supplied at runtime.
func emitTransfer(ctx *context.Context, e *emitter.Emitter) {
	addrKey := types.Info{Category: types.CategoryAddress}
	amountValue := types.Info{Category: types.CategoryInteger, NumBits: 128, IsSigned: false}

	e.EmitRaw(0, fmt.Sprintf("; %s", ctx.NextLabel("transfer_cont")))

	// Stack going in: dest (S1), amount (S0). Push the dict, set, store back.
	e.EmitRaw(1, "PUSH C7") // stand-in for "load balances dict from c7/c4"
	dictops.Emit(e, dictops.Op{KeyType: addrKey, ValueType: amountValue, Kind: dictops.Set}, nil, nil)
	e.EmitRaw(0, "POP C7") // stand-in for "store balances dict back"

	spec := msginfo.Spec{
		Flavor:        msginfo.Internal,
		ParamsOnStack: map[msginfo.FieldID]bool{msginfo.FieldDest: true},
	}
	if err := msginfo.SendMsg(e, spec, nil, nil, msginfo.DefaultSendFlag); err != nil {
		e.Bug(err.Error())
	}
	e.Ret()
}

// emitGetBalance models "return balances[owner] or 0": a dictionary
// GetFromMapping keyed by address with a numeric default.
func emitGetBalance(ctx *context.Context, e *emitter.Emitter) {
	addrKey := types.Info{Category: types.CategoryAddress}
	amountValue := types.Info{Category: types.CategoryInteger, NumBits: 128, IsSigned: false}

	e.EmitRaw(1, "PUSH C7")
	dictops.Emit(e, dictops.Op{KeyType: addrKey, ValueType: amountValue, Kind: dictops.GetFromMapping}, nil, nil)
	e.Ret()
}
