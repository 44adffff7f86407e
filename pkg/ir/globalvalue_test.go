package ir

import "testing"

type fakeIsa struct{ ptr Type }

func (f fakeIsa) PointerType() Type { return f.ptr }

func TestGlobalValueString(t *testing.T) {
	cases := []struct {
		data GlobalValueData
		want string
	}{
		{VMContextData(), "vmctx"},
		{LoadData(GlobalValue(0), 0, TypeI64), "load.i64 notrap aligned gv0"},
		{LoadData(GlobalValue(2), 8, TypeI64), "load.i64 notrap aligned gv2+8"},
		{LoadData(GlobalValue(1), -16, TypeI32), "load.i32 notrap aligned gv1-16"},
		{IAddImmData(GlobalValue(1), 64, TypeI64), "iadd_imm.i64 gv1, 64"},
		{IAddImmData(GlobalValue(0), -8, TypeI32), "iadd_imm.i32 gv0, -8"},
		{SymbolData("memory", 0, false), "symbol memory"},
		{SymbolData("memory", 0, true), "colocated symbol memory"},
		{SymbolData("table", 16, false), "symbol table+16"},
		{SymbolData("table", -4, true), "colocated symbol table-4"},
	}
	for _, c := range cases {
		if got := c.data.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestGlobalType(t *testing.T) {
	isa := fakeIsa{ptr: TypeI64}

	cases := []struct {
		data GlobalValueData
		want Type
	}{
		{VMContextData(), TypeI64},
		{SymbolData("memory", 0, false), TypeI64},
		{LoadData(GlobalValue(0), 0, TypeI32), TypeI32},
		{IAddImmData(GlobalValue(0), 8, TypeI64), TypeI64},
	}
	for _, c := range cases {
		if got := c.data.GlobalType(isa); got != c.want {
			t.Errorf("GlobalType(%s) = %s, want %s", c.data, got, c.want)
		}
	}

	// On a 32-bit target the pointer-typed variants follow the target.
	isa32 := fakeIsa{ptr: TypeI32}
	vm := VMContextData()
	if got := vm.GlobalType(isa32); got != TypeI32 {
		t.Errorf("GlobalType(vmctx) on 32-bit = %s, want i32", got)
	}
}

func TestSymbolNameOnlyOnSymbols(t *testing.T) {
	sym := SymbolData("env_memory", 0, true)
	if got := sym.SymbolName(); got != "env_memory" {
		t.Errorf("SymbolName() = %q, want %q", got, "env_memory")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("SymbolName on a vmctx global value did not panic")
		}
	}()
	vm := VMContextData()
	vm.SymbolName()
}
