package expression

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Comparisons(t *testing.T) {
	t.Parallel()

	props := map[string]any{
		"plan": "basic",
		"age":  21,
		"beta": true,
	}

	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"equal string match", Property("plan").Equal("basic"), true},
		{"equal string mismatch", Property("plan").Equal("pro"), false},
		{"equal bool", Property("beta").Equal(true), true},
		{"not equal", Property("plan").NotEqual("pro"), true},
		{"greater than", Property("age").GreaterThan(20), true},
		{"greater than false", Property("age").GreaterThan(21), false},
		{"greater than or equal boundary", Property("age").GreaterThanOrEqual(21), true},
		{"less than", Property("age").LessThan(65), true},
		{"less than or equal boundary", Property("age").LessThanOrEqual(21), true},
		{"missing property never matches", Property("ghost").Equal("anything"), false},
		{"type mismatch never matches", Property("plan").Equal(21), false},
		{"ordered comparison on string collapses to false", Property("plan").GreaterThan(5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.Evaluate(props))
		})
	}
}

func TestEvaluate_AnyAll(t *testing.T) {
	t.Parallel()

	props := map[string]any{"plan": "basic", "age": 17}

	basic := Property("plan").Equal("basic")
	adult := Property("age").GreaterThanOrEqual(21)

	assert.True(t, Any(basic, adult).Evaluate(props))
	assert.False(t, All(basic, adult).Evaluate(props))
	assert.True(t, All(basic).Evaluate(props))

	// Empty Any is always false, empty All is always true.
	assert.False(t, Any().Evaluate(props))
	assert.True(t, All().Evaluate(props))

	// A failing branch inside Any is skipped, not fatal.
	broken := Property("plan").GreaterThan(10)
	assert.True(t, Any(broken, basic).Evaluate(props))
	assert.False(t, All(broken, basic).Evaluate(props))
}

func TestEvaluate_Coercions(t *testing.T) {
	t.Parallel()

	props := map[string]any{"visits": "42", "admin": "true"}

	assert.True(t, Number(Property("visits")).GreaterThan(40).Evaluate(props))
	assert.True(t, Boolean(Property("admin")).Equal(true).Evaluate(props))
	assert.True(t, String(Value(42)).Equal("42").Evaluate(props))

	// Unparseable coercions collapse to false.
	assert.False(t, Number(Value("not a number")).GreaterThan(0).Evaluate(nil))
	assert.False(t, Boolean(Value("maybe")).Equal(true).Evaluate(nil))
}

func TestEvaluate_TimeAndRandom(t *testing.T) {
	t.Parallel()

	// A timestamp far in the past is always before now.
	past := Time("2020-01-01T00:00:00Z")
	assert.True(t, Now().GreaterThan(past).Evaluate(nil))
	assert.False(t, Now().LessThan(past).Evaluate(nil))

	// Malformed timestamps collapse to false.
	assert.False(t, Time("yesterday-ish").LessThan(Now()).Evaluate(nil))

	// Random draws stay inside [0, max).
	for range 100 {
		assert.True(t, Random(100).LessThan(100).Evaluate(nil))
		assert.True(t, Random(100).GreaterThanOrEqual(0).Evaluate(nil))
	}
	assert.False(t, Random(0).GreaterThan(0).Evaluate(nil))
}

func TestEvaluate_Truthiness(t *testing.T) {
	t.Parallel()

	assert.False(t, Value(false).Evaluate(nil))
	assert.True(t, Value(true).Evaluate(nil))
	assert.True(t, Value("anything").Evaluate(nil))
	assert.True(t, Value(0).Evaluate(nil), "only nil and false are falsy")
	assert.False(t, Property("missing").Evaluate(nil))
	assert.False(t, Expression{}.Evaluate(nil), "zero value evaluates to false")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Property("plan").Equal("basic").Validate())
	require.NoError(t, Any().Validate())
	require.NoError(t, All(Now().LessThan(Time("2030-01-01T00:00:00Z"))).Validate())

	assert.Error(t, Expression{}.Validate(), "empty literal is invalid")
	assert.Error(t, Expression{op: "Wat"}.Validate(), "unknown operator")
	assert.Error(t, Expression{op: OpEqual, args: []Expression{Value(1)}}.Validate(), "wrong arity")
	assert.Error(t, Value([]string{"nope"}).Validate(), "non-scalar literal")
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr Expression
		json string
	}{
		{
			"property equality",
			Property("plan").Equal("basic"),
			`{"Equal":[{"Property":["plan"]},"basic"]}`,
		},
		{
			"numeric comparison",
			Property("age").GreaterThanOrEqual(21),
			`{"GreaterThanOrEqualTo":[{"Property":["age"]},21]}`,
		},
		{
			"nested any",
			Any(Property("plan").Equal("basic"), Property("age").GreaterThanOrEqual(21)),
			`{"Any":[{"Equal":[{"Property":["plan"]},"basic"]},{"GreaterThanOrEqualTo":[{"Property":["age"]},21]}]}`,
		},
		{
			"empty any",
			Any(),
			`{"Any":[]}`,
		},
		{
			"bare scalar",
			Value(true),
			`true`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.expr)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(raw))

			var decoded Expression
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Equal(t, tt.expr, decoded, "decode(encode(e)) must equal e")
		})
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{"Wat":["x"]}`,
		`{"Equal":[1,2],"Extra":[3]}`,
		`{}`,
		`[1,2,3]`,
		`null`,
	} {
		var e Expression
		assert.Error(t, json.Unmarshal([]byte(raw), &e), "input %s", raw)
	}
}

func TestUnmarshalAcceptsShorthandArgument(t *testing.T) {
	t.Parallel()

	var e Expression
	require.NoError(t, json.Unmarshal([]byte(`{"Property":"plan"}`), &e))
	assert.Equal(t, Property("plan"), e)
}

func TestFromJSONValidates(t *testing.T) {
	t.Parallel()

	e, err := FromJSON([]byte(`{"Equal":[{"Property":["plan"]},"basic"]}`))
	require.NoError(t, err)
	assert.Equal(t, Property("plan").Equal("basic"), e)

	_, err = FromJSON([]byte(`{"Equal":["only one"]}`))
	assert.Error(t, err, "arity is checked")
}
