package statement

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rdfType   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	provNS    = "http://www.w3.org/ns/prov#"
	dcTitle   = "http://purl.org/dc/terms/title"
	rawbaseNS = "http://rawbase.example.org/"
)

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		name     string
		lexical  string
		lang     string
		datatype string
		want     string
	}{
		{"plain", "init", "", "", `"init"`},
		{"language tag", "hello", "en", "", `"hello"@en`},
		{"typed", "2014-05-01T10:00:00Z", "", "http://www.w3.org/2001/XMLSchema#dateTime",
			`"2014-05-01T10:00:00Z"^^http://www.w3.org/2001/XMLSchema#dateTime`},
		{"xsd string is implied", "init", "", "http://www.w3.org/2001/XMLSchema#string", `"init"`},
		{"lang wins over datatype", "hi", "fr", "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString", `"hi"@fr`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLiteral(tt.lexical, tt.lang, tt.datatype)
			if got != tt.want {
				t.Errorf("FormatLiteral() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLiteralValue(t *testing.T) {
	tests := []struct {
		object string
		want   string
	}{
		{`"init"`, "init"},
		{`"hello"@en`, "hello"},
		{`"2014-05-01T10:00:00Z"^^http://www.w3.org/2001/XMLSchema#dateTime`, "2014-05-01T10:00:00Z"},
		{"http://example.org/v1", "http://example.org/v1"},
		{`"unterminated`, `"unterminated`},
		{`""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.object, func(t *testing.T) {
			if got := LiteralValue(tt.object); got != tt.want {
				t.Errorf("LiteralValue(%q) = %q, want %q", tt.object, got, tt.want)
			}
		})
	}
}

func TestDecoderReadsTurtle(t *testing.T) {
	f, err := os.Open("testdata/history.ttl")
	require.NoError(t, err)
	defer f.Close()

	statements, err := ReadAll(f)
	require.NoError(t, err)
	require.Len(t, statements, 9)

	first := statements[0]
	assert.Equal(t, rawbaseNS+"commit1", first.Subject)
	assert.Equal(t, rdfType, first.Predicate)
	assert.Equal(t, provNS+"Activity", first.Object)
	assert.Nil(t, first.ObjectMeta)

	title := statements[1]
	assert.Equal(t, dcTitle, title.Predicate)
	assert.Equal(t, `"init"`, title.Object)
	require.NotNil(t, title.ObjectMeta)
	assert.Empty(t, title.ObjectMeta.Datatype)

	atTime := statements[2]
	assert.Equal(t, provNS+"atTime", atTime.Predicate)
	assert.Equal(t, `"2014-05-01T10:00:00Z"^^http://www.w3.org/2001/XMLSchema#dateTime`, atTime.Object)
	require.NotNil(t, atTime.ObjectMeta)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#dateTime", atTime.ObjectMeta.Datatype)

	derived := statements[5]
	assert.Equal(t, rawbaseNS+"v2", derived.Subject)
	assert.Equal(t, provNS+"wasDerivedFrom", derived.Predicate)
	assert.Equal(t, rawbaseNS+"v1", derived.Object)

	lang := statements[8]
	assert.Equal(t, `"add labels"@en`, lang.Object)
	require.NotNil(t, lang.ObjectMeta)
	assert.Equal(t, "en", lang.ObjectMeta.Lang)
}

func TestDecoderEndOfStreamIsSticky(t *testing.T) {
	dec := NewDecoder(strings.NewReader("<http://a> <http://b> <http://c> .\n"))

	st, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "http://a", st.Subject)

	for i := 0; i < 3; i++ {
		_, err = dec.Next()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestDecoderMalformedInput(t *testing.T) {
	input := "<http://a> <http://b> <http://c> .\n<http://a> <http://b> .\n<http://x> <http://y> <http://z> .\n"
	dec := NewDecoder(strings.NewReader(input))

	_, err := dec.Next()
	require.NoError(t, err)

	_, err = dec.Next()
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %T", err)
	assert.Equal(t, 1, parseErr.Offset)
	assert.NotNil(t, parseErr.Unwrap())

	_, again := dec.Next()
	assert.Same(t, err, again)
}

func TestDecoderBlankNodes(t *testing.T) {
	dec := NewDecoder(strings.NewReader("_:b0 <http://www.w3.org/ns/prov#generated> <http://v1> .\n"))

	st, err := dec.Next()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(st.Subject, "_:"), "blank subject %q should keep _: prefix", st.Subject)
}

func TestParseCallbacks(t *testing.T) {
	t.Run("success calls end once", func(t *testing.T) {
		var hits, ends, fails int
		Parse(strings.NewReader("<http://a> <http://b> <http://c> .\n<http://a> <http://b> \"d\" .\n"),
			func(Statement) { hits++ },
			func() { ends++ },
			func(error) { fails++ })

		assert.Equal(t, 2, hits)
		assert.Equal(t, 1, ends)
		assert.Equal(t, 0, fails)
	})

	t.Run("failure calls fail once", func(t *testing.T) {
		var ends, fails int
		var got error
		Parse(strings.NewReader("<http://a> <http://b"),
			func(Statement) {},
			func() { ends++ },
			func(err error) { fails++; got = err })

		assert.Equal(t, 0, ends)
		assert.Equal(t, 1, fails)
		var parseErr *ParseError
		assert.True(t, errors.As(got, &parseErr))
	})

	t.Run("empty document ends immediately", func(t *testing.T) {
		var hits, ends int
		Parse(strings.NewReader(""), func(Statement) { hits++ }, func() { ends++ }, nil)
		assert.Equal(t, 0, hits)
		assert.Equal(t, 1, ends)
	})
}

func TestAllStopsWhenConsumerBreaks(t *testing.T) {
	input := "<http://a> <http://b> <http://c1> .\n<http://a> <http://b> <http://c2> .\n<http://a> <http://b> <http://c3> .\n"
	dec := NewDecoder(strings.NewReader(input))

	for st, err := range dec.All() {
		require.NoError(t, err)
		assert.Equal(t, "http://c1", st.Object)
		break
	}

	st, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "http://c2", st.Object)
}
