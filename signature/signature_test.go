// Copyright © 2024 The ELPS authors

package signature

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want Decl
	}{
		{
			"java.security.MessageDigest.getInstance(kotlin.String): java.security.MessageDigest",
			Decl{
				Owner: "java.security.MessageDigest", Name: "getInstance", HasParams: true,
				Params:     []Param{{Type: "kotlin.String"}},
				ReturnType: "java.security.MessageDigest",
			},
		},
		{
			"java.util.Random.<init>(kotlin.Long)",
			Decl{Owner: "java.util.Random", Name: "<init>", HasParams: true, Params: []Param{{Type: "kotlin.Long"}}},
		},
		{
			"val size: kotlin.Int",
			Decl{Modifiers: []string{"val"}, Name: "size", ReturnType: "kotlin.Int"},
		},
		{
			"kotlin.String.format(kotlin.String, vararg kotlin.Any?)",
			Decl{
				Owner: "kotlin.String", Name: "format", HasParams: true,
				Params: []Param{{Type: "kotlin.String"}, {Type: "kotlin.Any", Nullable: true, Vararg: true}},
			},
		},
		{
			"com.example.Api.*(..)",
			Decl{Owner: "com.example.Api", Name: "*", HasParams: true, OpenTail: true},
		},
		{
			"static suspend load(*, kotlin.Int, ..): kotlin.String?",
			Decl{
				Modifiers: []string{"static", "suspend"}, Name: "load", HasParams: true,
				Params:     []Param{{Any: true}, {Type: "kotlin.Int"}},
				OpenTail:   true,
				ReturnType: "kotlin.String", ReturnNullable: true,
			},
		},
		{
			"kotlin.collections.Map<K, V>.getOrDefault(K, V): V",
			Decl{
				Owner: "kotlin.collections.Map", Name: "getOrDefault", HasParams: true,
				Params:     []Param{{Type: "K"}, {Type: "V"}},
				ReturnType: "V",
			},
		},
		{"println()", Decl{Name: "println", HasParams: true}},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			d, err := Parse(test.text)
			require.NoError(t, err)
			assert.Equal(t, test.want, *d)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"foo(",
		"foo(kotlin.Int",
		"foo(.., kotlin.Int)",
		"foo(): ",
		"foo() bar",
		"(kotlin.Int)",
	} {
		_, err := Parse(text)
		if assert.Error(t, err, text) {
			assert.True(t, errors.Is(err, ErrSyntax), text)
		}
	}
}

func TestDeclString(t *testing.T) {
	for _, text := range []string{
		"java.util.Random.<init>(kotlin.Long)",
		"static load(*, vararg kotlin.Int?, ..): kotlin.String?",
		"val size: kotlin.Int",
	} {
		assert.Equal(t, text, MustParse(text).String())
	}
	assert.Panics(t, func() { MustParse("foo(") })
}
