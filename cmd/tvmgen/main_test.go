package main

import (
	"strings"
	"testing"

	"go.uber.org/atomic"

	"github.com/tvmforge/tvmgen/internal/context"
	"github.com/tvmforge/tvmgen/internal/pragma"
)

func testContract() context.Contract {
	return context.Contract{
		Name:      "Wallet",
		BaseChain: []string{"Wallet"},
		Functions: []context.FunctionDecl{
			{Name: "transfer", ArgCount: 2, ReturnCount: 0, IsPublic: true},
			{Name: "getBalance", ArgCount: 1, ReturnCount: 1, IsPublic: true},
			{Name: "fallback", ArgCount: 0, ReturnCount: 0},
		},
	}
}

func TestCompileConcurrentlyProducesOneListingPerFunction(t *testing.T) {
	contract := testContract()
	ctx := context.New(contract, []string{"balances", "seqno"}, pragma.GenerateDefault(), nil, atomic.NewInt64(0))

	listings, err := compileConcurrently(ctx, contract.Functions)
	if err != nil {
		t.Fatalf("compileConcurrently returned error: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("got %d listings, want 3", len(listings))
	}
	if !strings.Contains(listings["transfer"], "SENDRAWMSG") {
		t.Fatalf("transfer listing missing SENDRAWMSG:\n%s", listings["transfer"])
	}
	if !strings.Contains(listings["getBalance"], "DICTKGET") && !strings.Contains(listings["getBalance"], "IFELSE") {
		t.Fatalf("getBalance listing missing expected dictionary lookup:\n%s", listings["getBalance"])
	}
}

func TestCompileOneEmitsTailReturnElision(t *testing.T) {
	ctx := context.New(testContract(), nil, pragma.GenerateDefault(), nil, nil)
	rendered, bug := compileOne(ctx, context.FunctionDecl{Name: "fallback", ArgCount: 0})
	if bug != nil {
		t.Fatalf("unexpected diagnostic: %v", bug)
	}
	if rendered != "" {
		t.Fatalf("expected the sole trailing RET to be elided, got %q", rendered)
	}
}

func TestLoadAbiFallsBackToDefaultWhenNoConfigGiven(t *testing.T) {
	logger := newLogger(false)
	defer logger.Sync()
	view, err := loadAbi("", logger.Sugar())
	if err != nil {
		t.Fatalf("loadAbi returned error: %v", err)
	}
	if view.AbiVersion() != 2 {
		t.Fatalf("AbiVersion() = %d, want 2", view.AbiVersion())
	}
}
