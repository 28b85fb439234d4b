// Copyright © 2024 The ELPS authors

package matcher

import (
	"errors"
	"testing"

	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fn(owner, name string, ret string, params ...symbol.Param) *symbol.Symbol {
	return &symbol.Symbol{
		Owner:     owner,
		Name:      name,
		Kind:      symbol.KindFunction,
		Signature: symbol.Signature{Params: params, ReturnType: ret},
	}
}

func param(typ string) symbol.Param {
	return symbol.Param{Type: typ}
}

func varargParam(elem string) symbol.Param {
	return symbol.Param{Type: "kotlin.Array", ElementType: elem, Vararg: true}
}

// bindCall builds `recv.name(args)` and binds the selector call to s.
func bindCall(t *testing.T, table *symbol.Table, s *symbol.Symbol, receiverType string, args ...tree.Expr) tree.Expr {
	t.Helper()
	call := &tree.Call{Fun: &tree.Ident{Name: s.Name}}
	for _, a := range args {
		call.Args = append(call.Args, &tree.Argument{Value: a})
	}
	table.BindCall(call, &symbol.ResolvedCall{Symbol: s, ReceiverType: receiverType})
	if receiverType == "" {
		tree.Link(call)
		return call
	}
	q := &tree.Qualified{X: &tree.Ident{Name: "recv"}, Sel: call}
	tree.Link(q)
	return q
}

func str(s string) *tree.StringTemplate {
	return &tree.StringTemplate{Entries: []tree.Node{&tree.TemplateText{Text: s}}}
}

func TestScenarioQualifierAndName(t *testing.T) {
	table := symbol.NewTable(nil)
	helloString := fn("pkg.Sample", "sayHello", symbol.TypeUnit, param(symbol.TypeString))
	helloInt := fn("pkg.Sample", "sayHello", symbol.TypeUnit, param(symbol.TypeInt))
	callString := bindCall(t, table, helloString, "pkg.Sample", str("x"))
	callInt := bindCall(t, table, helloInt, "pkg.Sample", &tree.IntLit{Value: 42})

	m := MustFun(Qualifier("pkg.Sample"), Name("sayHello"))
	assert.True(t, m.Matches(callString, table))
	assert.True(t, m.Matches(callInt, table))

	m = MustFun(Qualifier("pkg.Sample"), Name("sayHello"), Arguments(Arg(symbol.TypeString)))
	assert.True(t, m.Matches(callString, table))
	assert.False(t, m.Matches(callInt, table))

	m = MustFun(Qualifier("pkg.Sample"), Name("sayHello"), Arguments(SimpleArg("String")))
	assert.True(t, m.Matches(callString, table))
	assert.False(t, m.Matches(callInt, table))
}

func TestWildcardMatchesEverything(t *testing.T) {
	table := symbol.NewTable(symbol.DefaultLibrary())
	lib := table.Library()
	var calls []tree.Expr
	calls = append(calls, bindCall(t, table, lib.Functions("kotlin.io.println")[0], "", str("x")))
	calls = append(calls, bindCall(t, table, lib.Constructors("java.util.Random")[1], "", &tree.IntLit{Value: 1}))
	calls = append(calls, bindCall(t, table, lib.Members("java.util.Random", "setSeed")[0], "java.util.Random", &tree.IntLit{Value: 1}))
	calls = append(calls, bindCall(t, table, lib.Functions("kotlin.let")[0], "kotlin.String"))

	m := MustFun()
	for _, c := range calls {
		assert.True(t, m.Matches(c, table))
	}
	assert.False(t, m.Matches(&tree.Call{Fun: &tree.Ident{Name: "unresolved"}}, table))
	assert.False(t, m.Matches(nil, table))
	assert.False(t, m.Matches(calls[0], nil))
}

func TestQualifierNameImplication(t *testing.T) {
	table := symbol.NewTable(nil)
	syms := []*symbol.Symbol{
		fn("a.A", "f", symbol.TypeUnit),
		fn("a.A", "g", symbol.TypeUnit),
		fn("b.B", "f", symbol.TypeUnit),
		fn("a", "f", symbol.TypeUnit),
	}
	m := MustFun(Qualifiers("a.A", "a"), Names("f"))
	for _, s := range syms {
		c := bindCall(t, table, s, "")
		if m.Matches(c, table) {
			assert.Contains(t, []string{"a.A", "a"}, s.Owner)
			assert.Equal(t, "f", s.Name)
		}
	}
	assert.True(t, m.Matches(bindCall(t, table, syms[0], ""), table))
	assert.True(t, m.Matches(bindCall(t, table, syms[3], ""), table))
	assert.False(t, m.Matches(bindCall(t, table, syms[1], ""), table))
	assert.False(t, m.Matches(bindCall(t, table, syms[2], ""), table))
}

func TestReceiverTypeQualifier(t *testing.T) {
	table := symbol.NewTable(nil)
	// Inherited member called on a subtype: the receiver type is accepted.
	s := fn("a.Base", "run", symbol.TypeUnit)
	c := bindCall(t, table, s, "a.Sub")
	assert.True(t, MustFun(Qualifier("a.Sub")).Matches(c, table))
	assert.True(t, MustFun(Qualifier("a.Base")).Matches(c, table))
	assert.False(t, MustFun(Qualifier("a.Other")).Matches(c, table))
}

func TestVarargLaw(t *testing.T) {
	shape := Arguments(Arg(symbol.TypeString), VarargArg(symbol.TypeInt))
	m := MustFun(shape)

	for k := 0; k <= 5; k++ {
		params := []symbol.Param{param(symbol.TypeString)}
		for i := 1; i < k; i++ {
			params = append(params, param(symbol.TypeInt))
		}
		if k > 0 {
			params = append(params, varargParam(symbol.TypeInt))
		}
		assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", params...)}), "k=%d", k)
	}
	// The covered tail must end in a vararg formal.
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeString), param(symbol.TypeInt))}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeString), varargParam(symbol.TypeInt), param(symbol.TypeInt))}))
	// Fewer parameters than the fixed prefix.
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "")}))
	// A vararg formal is matched by its element type.
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeString), varargParam(symbol.TypeInt))}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeString), varargParam(symbol.TypeLong))}))
	// Wrong prefix type.
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeInt))}))

	// Without a vararg tail arity is exact.
	exact := MustFun(Arguments(Arg(symbol.TypeString), Arg(symbol.TypeInt)))
	assert.False(t, exact.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeString), param(symbol.TypeInt), param(symbol.TypeInt))}))
	assert.True(t, exact.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeString), param(symbol.TypeInt))}))
}

func TestArgumentShapeAlternatives(t *testing.T) {
	m := MustFun(
		NoArguments(),
		Arguments(Arg(symbol.TypeLong)),
	)
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "")}))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeLong))}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeInt))}))

	m = MustFun(ArgumentShapes(
		[]ArgumentMatcher{Arg(symbol.TypeInt)},
		[]ArgumentMatcher{AnyArgument(), AnyArgument()},
	))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param(symbol.TypeInt))}))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "", param("x.A"), param("x.B"))}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "f", "")}))
}

func TestSupertypeLaw(t *testing.T) {
	base := fn("a.T", "m", symbol.TypeUnit)
	sub := fn("a.S", "m", symbol.TypeUnit)
	sub.Overridden = []*symbol.Symbol{base}
	call := &symbol.ResolvedCall{Symbol: sub, ReceiverType: "a.S"}

	assert.True(t, MustFun(DefiningSupertype("a.T")).MatchesCall(call))
	assert.False(t, MustFun(Qualifier("a.T")).MatchesCall(call))
	assert.True(t, MustFun(Qualifier("a.T")).MatchesCall(&symbol.ResolvedCall{Symbol: base}))

	// Constructors never match through overrides.
	ctor := &symbol.Symbol{Owner: "a.S", Name: "<init>", Kind: symbol.KindConstructor, Overridden: []*symbol.Symbol{base}}
	assert.False(t, MustFun(DefiningSupertype("a.T")).MatchesCall(&symbol.ResolvedCall{Symbol: ctor}))
	assert.True(t, MustFun(DefiningSupertype("a.S"), Constructor()).MatchesCall(&symbol.ResolvedCall{Symbol: ctor}))
}

func TestSupertypeFromLibrary(t *testing.T) {
	lib := symbol.DefaultLibrary()
	getOrDefault := lib.Members("java.util.HashMap", "getOrDefault")[0]
	m := MustFun(DefiningSupertype("kotlin.collections.Map"), Name("getOrDefault"))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: getOrDefault, ReceiverType: "java.util.HashMap"}))
}

func TestFlagsAndReturnType(t *testing.T) {
	s := fn("p", "f", symbol.TypeString)
	s.Flags = symbol.FlagSuspend | symbol.FlagExtension
	c := &symbol.ResolvedCall{Symbol: s}

	assert.True(t, MustFun(Suspend(true)).MatchesCall(c))
	assert.False(t, MustFun(Suspend(false)).MatchesCall(c))
	assert.True(t, MustFun(Extension(true), Operator(false)).MatchesCall(c))
	assert.False(t, MustFun(Operator(true)).MatchesCall(c))

	assert.True(t, MustFun(ReturnType(symbol.TypeString)).MatchesCall(c))
	assert.False(t, MustFun(ReturnType(symbol.TypeInt)).MatchesCall(c))

	// The use-site signature wins over the declared one.
	generic := fn("p", "first", "T")
	specialized := &symbol.ResolvedCall{Symbol: generic, Signature: symbol.Signature{ReturnType: symbol.TypeInt}}
	assert.True(t, MustFun(ReturnType(symbol.TypeInt)).MatchesCall(specialized))
}

func TestDynamicUnimplemented(t *testing.T) {
	_, err := NewFunMatcher(Name("f"), Dynamic(true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnimplemented))
	assert.Panics(t, func() { MustFun(Dynamic(false)) })
}

func TestConstructorMatcher(t *testing.T) {
	lib := symbol.DefaultLibrary()
	ctors := lib.Constructors("java.util.Random")
	seeded := &symbol.ResolvedCall{Symbol: ctors[1]}
	unseeded := &symbol.ResolvedCall{Symbol: ctors[0]}

	m := MustFun(Qualifier("java.util.Random"), Constructor(), Name("ignored"), Arguments(Arg(symbol.TypeLong)))
	assert.True(t, m.MatchesCall(seeded))
	assert.False(t, m.MatchesCall(unseeded))
	setSeed := lib.Members("java.util.Random", "setSeed")[0]
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: setSeed, ReceiverType: "java.util.Random"}))
}

func TestNamePattern(t *testing.T) {
	cache := NewPatternCache()
	m := MustFun(Names("exec"), NamePattern("get[A-Z]\\w*"), WithPatternCache(cache))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "exec", "")}))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "getName", "")}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "forget", "")}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "get", "")}))

	MustFun(NamePattern("get[A-Z]\\w*"), WithPatternCache(cache))
	assert.Equal(t, 1, cache.Len())

	_, err := NewFunMatcher(NamePattern("("))
	assert.Error(t, err)
}

func TestPropertyAccess(t *testing.T) {
	lib := symbol.DefaultLibrary()
	algorithm := lib.Members("java.security.MessageDigest", "algorithm")[0]
	read := &symbol.ResolvedCall{Symbol: algorithm, ReceiverType: "java.security.MessageDigest", Access: symbol.AccessRead}

	assert.True(t, MustFun(Name("getAlgorithm")).MatchesCall(read))
	assert.True(t, MustFun(Name("algorithm"), NoArguments(), ReturnType(symbol.TypeString)).MatchesCall(read))

	prop := &symbol.Symbol{Owner: "a.User", Name: "name", Kind: symbol.KindProperty, Signature: symbol.Signature{ReturnType: symbol.TypeString}}
	prop.GetterName, prop.SetterName = "getName", "setName"
	write := &symbol.ResolvedCall{Symbol: prop, Access: symbol.AccessWrite}
	assert.True(t, MustFun(Name("setName"), Arguments(Arg(symbol.TypeString)), ReturnType(symbol.TypeUnit)).MatchesCall(write))
	assert.True(t, MustFun(Name("name")).MatchesCall(write))
	assert.False(t, MustFun(Name("getName")).MatchesCall(write))
	assert.False(t, MustFun(Name("name"), NoArguments()).MatchesCall(write))

	readProp := &symbol.ResolvedCall{Symbol: prop, Access: symbol.AccessRead}
	assert.True(t, MustFun(Name("getName"), NoArguments(), ReturnType(symbol.TypeString)).MatchesCall(readProp))
}

func TestMatchesDeclaration(t *testing.T) {
	table := symbol.NewTable(nil)
	decl := &tree.Function{Name: "hash", Params: []*tree.Parameter{{Name: "s", Type: "String"}}}
	s := fn("com.example.Util", "hash", symbol.TypeString, param(symbol.TypeString))
	table.BindDeclaration(s, decl)

	assert.True(t, MustFun(Qualifier("com.example.Util"), Name("hash")).Matches(decl, table))
	assert.False(t, MustFun(Name("other")).Matches(decl, table))
	assert.False(t, MustFun().Matches(&tree.Function{Name: "unbound"}, table))
}

func TestFromSignature(t *testing.T) {
	lib := symbol.DefaultLibrary()
	getInstance := lib.Members("java.security.MessageDigest", "getInstance")

	m, err := FromSignature("java.security.MessageDigest.getInstance(kotlin.String)")
	require.NoError(t, err)
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: getInstance[0]}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: getInstance[1]}))

	m, err = FromSignature("java.security.MessageDigest.getInstance")
	require.NoError(t, err)
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: getInstance[1]}))

	m, err = FromSignature("java.security.MessageDigest.getInstance(String, ..)")
	require.NoError(t, err)
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: getInstance[0]}))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: getInstance[1]}))

	m, err = FromSignature("java.util.Random.<init>(*)")
	require.NoError(t, err)
	ctors := lib.Constructors("java.util.Random")
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: ctors[0]}))
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: ctors[1]}))

	m, err = FromSignature("java.lang.System.*: kotlin.Long")
	require.NoError(t, err)
	assert.True(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: lib.Members("java.lang.System", "nanoTime")[0]}))
	assert.False(t, m.MatchesCall(&symbol.ResolvedCall{Symbol: lib.Members("java.lang.System", "getenv")[0]}))

	_, err = FromSignature("foo(")
	assert.True(t, errors.Is(err, ErrSignatureSyntax))
}

func TestFunMatchers(t *testing.T) {
	ms := FunMatchers{MustFun(Name("a")), MustFun(Name("b"))}
	assert.True(t, ms.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "b", "")}))
	assert.False(t, ms.MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "c", "")}))
	assert.False(t, FunMatchers(nil).MatchesCall(&symbol.ResolvedCall{Symbol: fn("p", "a", "")}))
}

func TestArgumentMatcher(t *testing.T) {
	nullableString := symbol.Param{Type: symbol.TypeString, Nullable: true}
	tests := []struct {
		name string
		m    ArgumentMatcher
		p    symbol.Param
		want bool
	}{
		{"any", AnyArgument(), nullableString, true},
		{"qualified", Arg(symbol.TypeString), nullableString, true},
		{"qualified mismatch", Arg("String"), nullableString, false},
		{"unqualified", SimpleArg("String"), nullableString, true},
		{"unqualified builder", Arg("String").Unqualified(), nullableString, true},
		{"nullable", Arg(symbol.TypeString).Nullable(true), nullableString, true},
		{"non-null", Arg(symbol.TypeString).Nullable(false), nullableString, false},
		{"vararg requires vararg", VarargArg(symbol.TypeString), nullableString, false},
		{"vararg element type", VarargArg(symbol.TypeInt), varargParam(symbol.TypeInt), true},
		{"vararg element mismatch", VarargArg(symbol.TypeLong), varargParam(symbol.TypeInt), false},
		{"vararg any element", AnyArgument().Vararg(), varargParam(symbol.TypeInt), true},
		{"plain against vararg formal", Arg(symbol.TypeInt), varargParam(symbol.TypeInt), false},
		{"array against vararg formal", Arg("kotlin.Array"), varargParam(symbol.TypeInt), true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, test.m.Matches(test.p))
		})
	}
	assert.Equal(t, "vararg kotlin.Int?", VarargArg(symbol.TypeInt).Nullable(true).String())
}
