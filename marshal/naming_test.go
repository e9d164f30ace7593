package marshal

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryPoint(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"z3.Native.mkContext", "z3_Native_mkContext"},
		{"com/microsoft/z3/Native.INTERNALgetAppArg", "com_microsoft_z3_Native_INTERNALgetAppArg"},
		{"z3.Native.set_param", "z3_Native_set_1param"},
		{"a.b;c[d", "a_b_2c_3d"},
		{"z3.Native.mk$ctx", "z3_Native_mk_00024ctx"},
		{"λ.x", "_003bb_x"},
		{"😀", "_0d83d_0de00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntryPoint(tt.name))
		})
	}
}

func TestDecodeEntryPoint(t *testing.T) {
	got, err := DecodeEntryPoint("z3_Native_set_1param_2_3_00024")
	require.NoError(t, err)
	assert.Equal(t, "z3.Native.set_param;[$", got)

	got, err = DecodeEntryPoint("_0d83d_0de00")
	require.NoError(t, err)
	assert.Equal(t, "😀", got)

	for _, bad := range []string{"a_0zz12", "a_012", "a-b"} {
		_, err := DecodeEntryPoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestNativeName(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"Z3_", "z3.Native.mkContext", "Z3_mk_context"},
		{"Z3_", "z3.Native.getASTKind", "Z3_get_ast_kind"},
		{"Z3_", "z3.Native.mkBVAdd", "Z3_mk_bv_add"},
		{"", "solver/Native.solverCheck2", "solver_check2"},
		{"lib_", "version", "lib_version"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NativeName(tt.prefix, tt.name), tt.name)
	}
}

func FuzzEntryPointRoundTrip(f *testing.F) {
	f.Add("mkContext")
	f.Add("set_param")
	f.Add("a;b[c$d")
	f.Add("λx😀")

	f.Fuzz(func(t *testing.T, name string) {
		// Separators decode to '.', so only names without them round-trip.
		if strings.ContainsAny(name, "./") || !utf8.ValidString(name) {
			t.Skip()
		}
		entry := EntryPoint(name)
		for i := 0; i < len(entry); i++ {
			require.True(t, entry[i] == '_' || isASCIIAlnum(rune(entry[i])), "entry %q", entry)
		}
		got, err := DecodeEntryPoint(entry)
		require.NoError(t, err)
		require.Equal(t, name, got)
	})
}
