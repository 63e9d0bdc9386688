package lang

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, input string, opts ...ResolverOption) (*Document, error) {
	t.Helper()

	doc := mustParse(t, input)

	return doc, NewResolver(opts...).Resolve(context.Background(), doc)
}

func scalar(t *testing.T, doc *Document, key string) string {
	t.Helper()

	e, ok := doc.Get(key)
	require.True(t, ok, "missing key %q", key)

	return e.Value.Scalar
}

func TestResolve_SimpleReference(t *testing.T) {
	doc, err := resolve(t, "vars {\n  region us-east\n}\nendpoint $vars.region\n")
	require.NoError(t, err)

	assert.Equal(t, "us-east", scalar(t, doc, "endpoint"))
}

func TestResolve_Interpolation(t *testing.T) {
	input := "vars {\n  host example.com\n  port 8080\n}\n" +
		"url \"https://$vars.host:$vars.port/api\"\n"

	doc, err := resolve(t, input)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com:8080/api", scalar(t, doc, "url"))
}

func TestResolve_ChainConverges(t *testing.T) {
	input := "vars {\n  a $vars.b\n  b $vars.c\n  c bottom\n}\n" +
		"out $vars.a\n"

	doc, err := resolve(t, input)
	require.NoError(t, err)

	assert.Equal(t, "bottom", scalar(t, doc, "out"))
}

func TestResolve_NestedVarsPath(t *testing.T) {
	input := "vars {\n  db {\n    host dbhost\n  }\n}\nconn $vars.db.host\n"

	doc, err := resolve(t, input)
	require.NoError(t, err)

	assert.Equal(t, "dbhost", scalar(t, doc, "conn"))
}

func TestResolve_OrderIndependent(t *testing.T) {
	// A reference declared before its definition resolves the same way.
	input := "out $vars.late\nvars {\n  late value\n}\n"

	doc, err := resolve(t, input)
	require.NoError(t, err)

	assert.Equal(t, "value", scalar(t, doc, "out"))
}

func TestResolve_ListItemsAndTableCells(t *testing.T) {
	input := "vars {\n  zone z1\n}\n" +
		"zones [$vars.zone, static]\n" +
		"placements {\n  columns [name, zone]\n  rows {\n    [web, $vars.zone]\n  }\n}\n"

	doc, err := resolve(t, input)
	require.NoError(t, err)

	zones, _ := doc.Get("zones")
	assert.Equal(t, "z1", zones.Value.List[0].Scalar)
	assert.Equal(t, "static", zones.Value.List[1].Scalar)

	placements, _ := doc.Get("placements")
	assert.Equal(t, "z1", placements.Value.Table.Rows[0][1])
}

func TestResolve_MultilineContent(t *testing.T) {
	input := "vars {\n  name web\n}\nscript ```bash\necho $vars.name\n```\n"

	doc, err := resolve(t, input)
	require.NoError(t, err)

	e, _ := doc.Get("script")
	assert.Equal(t, "echo web", e.Value.Multiline.Content)
}

func TestResolve_UnknownVarsPath(t *testing.T) {
	_, err := resolve(t, "out $vars.missing\n")

	require.ErrorIs(t, err, ErrUnresolvedReference)
	assert.ErrorContains(t, err, "$vars.missing")

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "out", le.Path())
}

func TestResolve_SelfReferenceIsCircular(t *testing.T) {
	_, err := resolve(t, "vars {\n  a $vars.a\n}\n")

	require.ErrorIs(t, err, ErrCircularReference)
}

func TestResolve_MutualReferenceIsCircular(t *testing.T) {
	_, err := resolve(t, "vars {\n  a $vars.b\n  b $vars.a\n}\n")

	require.ErrorIs(t, err, ErrCircularReference)
}

func TestResolve_UnregisteredNamespacePassesThrough(t *testing.T) {
	doc, err := resolve(t, "home $custom.path\n")
	require.NoError(t, err)

	assert.Equal(t, "$custom.path", scalar(t, doc, "home"))
}

func TestResolve_BareDollarIsNotAReference(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lone dollar",
			input: "price $\n",
			want:  "$",
		},
		{
			name:  "single segment",
			input: "shell $HOME\n",
			want:  "$HOME",
		},
		{
			name:  "trailing dot stays outside the token",
			input: "v \"end of $vars.\"\n",
			want:  "end of $vars.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := resolve(t, tt.input)
			require.NoError(t, err)

			key := doc.Entries[0].Key
			assert.Equal(t, tt.want, scalar(t, doc, key))
		})
	}
}

func TestResolve_NamespaceCollaborator(t *testing.T) {
	fn := func(namespace, function string, params []string) (string, error) {
		assert.Equal(t, "env", namespace)
		assert.Equal(t, "REGION", function)
		assert.Empty(t, params)

		return "us-west", nil
	}

	doc, err := resolve(t, "region $env.REGION\n", WithNamespace("env", fn))
	require.NoError(t, err)

	assert.Equal(t, "us-west", scalar(t, doc, "region"))
}

func TestResolve_NamespaceParams(t *testing.T) {
	var gotParams []string

	fn := func(namespace, function string, params []string) (string, error) {
		gotParams = params

		return "ok", nil
	}

	_, err := resolve(t, "v $svc.lookup.a.b\n", WithNamespace("svc", fn))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, gotParams)
}

func TestResolve_NamespaceResultCached(t *testing.T) {
	calls := 0

	fn := func(namespace, function string, params []string) (string, error) {
		calls++

		return "pinned", nil
	}

	doc, err := resolve(t, "a $sys.hostname\nb $sys.hostname\n", WithNamespace("sys", fn))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "pinned", scalar(t, doc, "a"))
	assert.Equal(t, "pinned", scalar(t, doc, "b"))
}

func TestResolve_NamespaceError(t *testing.T) {
	fn := func(namespace, function string, params []string) (string, error) {
		return "", errors.New("unset variable")
	}

	_, err := resolve(t, "v $env.MISSING\n", WithNamespace("env", fn))

	require.ErrorIs(t, err, ErrNamespace)
	assert.ErrorContains(t, err, "unset variable")
}

func TestResolve_NamespaceFeedsVars(t *testing.T) {
	// A vars entry may itself hold a namespace reference; dependents pick
	// up the resolved value on a later pass.
	fn := func(namespace, function string, params []string) (string, error) {
		return "resolved-host", nil
	}

	input := "vars {\n  host $sys.hostname\n}\nurl http://$vars.host/\n"

	doc, err := resolve(t, input, WithNamespace("sys", fn))
	require.NoError(t, err)

	assert.Equal(t, "http://resolved-host/", scalar(t, doc, "url"))
}

func TestScanReference(t *testing.T) {
	tests := []struct {
		in    string
		segs  []string
		width int
	}{
		{"$vars.a", []string{"vars", "a"}, 7},
		{"$vars.a.b rest", []string{"vars", "a", "b"}, 9},
		{"$vars.a.", []string{"vars", "a"}, 7},
		{"$vars", nil, 0},
		{"$", nil, 0},
		{"$.a", nil, 0},
		{"$env.MY_VAR", []string{"env", "MY_VAR"}, 11},
	}

	for _, tt := range tests {
		segs, width := scanReference(tt.in)

		assert.Equal(t, tt.segs, segs, "segments of %q", tt.in)
		assert.Equal(t, tt.width, width, "width of %q", tt.in)
	}
}

func TestVars_Snapshot(t *testing.T) {
	doc := mustParse(t, "vars {\n  a 1\n  db {\n    host h\n  }\n}\nother x\n")

	got := Vars(doc)

	assert.Equal(t, map[string]string{
		"a":       "1",
		"db.host": "h",
	}, got)
}
