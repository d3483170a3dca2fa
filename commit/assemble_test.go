package commit

import (
	"testing"

	"github.com/c360studio/provgraph/statement"
	"github.com/c360studio/provgraph/vocabulary/prov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const act1 = "http://rawbase.example.org/commit1"

func activityStatements() []statement.Statement {
	return []statement.Statement{
		statement.New(act1, prov.RDFType, prov.Activity),
		statement.NewLiteral(act1, prov.Title, "init", "", ""),
		statement.NewLiteral(act1, prov.AtTime, "2014-05-01T10:00:00Z", "", prov.XSDDateTime),
		statement.New(act1, prov.Generated, "http://rawbase.example.org/v1"),
		statement.New(act1, prov.WasAssociatedWith, "https://example.org/users/alice"),
	}
}

func TestAssembleSetsFields(t *testing.T) {
	tests := []struct {
		name  string
		st    statement.Statement
		check func(t *testing.T, r *Record)
	}{
		{
			name: "title sets message",
			st:   statement.NewLiteral(act1, prov.Title, "init", "", ""),
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, `"init"`, r.Message)
			},
		},
		{
			name: "atTime sets timestamp",
			st:   statement.New(act1, prov.AtTime, `"2014"`),
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, `"2014"`, r.Timestamp)
			},
		},
		{
			name: "generated sets version",
			st:   statement.New(act1, prov.Generated, "http://v1"),
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, "http://v1", r.Version)
			},
		},
		{
			name: "wasAssociatedWith sets author",
			st:   statement.New(act1, prov.WasAssociatedWith, "http://alice"),
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, "http://alice", r.Author)
			},
		},
		{
			name: "activity marker keeps a bare record",
			st:   statement.New(act1, prov.RDFType, prov.Activity),
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, &Record{IRI: act1}, r)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Assemble(tt.st, nil)
			require.NotNil(t, r)
			assert.Equal(t, act1, r.IRI)
			tt.check(t, r)
		})
	}
}

func TestAssembleDisqualifies(t *testing.T) {
	st := statement.New(act1, prov.RDFType, prov.Entity)
	assert.Nil(t, Assemble(st, nil))

	existing := &Record{IRI: act1, Version: "http://v1"}
	assert.Nil(t, Assemble(st, existing))
	assert.Equal(t, "http://v1", existing.Version, "a skipped statement must not alter the record")
}

func TestAssembleMutatesExistingInPlace(t *testing.T) {
	existing := &Record{IRI: act1}
	got := Assemble(statement.New(act1, prov.Generated, "http://v1"), existing)
	assert.Same(t, existing, got)
	assert.Equal(t, "http://v1", existing.Version)
}

func TestAssembleIsIdempotent(t *testing.T) {
	st := statement.NewLiteral(act1, prov.Title, "init", "", "")
	r := Assemble(st, nil)
	again := Assemble(st, r)
	assert.Same(t, r, again)
	assert.Equal(t, `"init"`, again.Message)
}

func TestFoldIsOrderIndependent(t *testing.T) {
	base := activityStatements()
	want := &Record{
		IRI:       act1,
		Message:   `"init"`,
		Timestamp: `"2014-05-01T10:00:00Z"^^` + prov.XSDDateTime,
		Version:   "http://rawbase.example.org/v1",
		Author:    "https://example.org/users/alice",
	}

	count := 0
	permute(base, 0, func(order []statement.Statement) {
		count++
		a := NewAssembler(nil)
		for _, st := range order {
			a.Fold(st)
		}
		require.Equal(t, 1, a.Len())
		assert.Equal(t, want, a.Map().Get(act1))
		assert.Equal(t, 0, a.Discarded())
	})
	assert.Equal(t, 120, count)
}

func TestFoldDisqualificationIsLocal(t *testing.T) {
	a := NewAssembler(nil)
	for _, st := range activityStatements() {
		a.Fold(st)
	}

	other := "http://rawbase.example.org/v1"
	got := a.Fold(statement.New(other, prov.RDFType, prov.Entity))
	assert.Nil(t, got)
	assert.Nil(t, a.Map().Get(other))
	assert.Equal(t, 1, a.Discarded())

	rec := a.Map().Get(act1)
	require.NotNil(t, rec)
	assert.Equal(t, "http://rawbase.example.org/v1", rec.Version)
}

func TestFoldSkipDoesNotDeleteHistory(t *testing.T) {
	a := NewAssembler(nil)
	a.Fold(statement.New(act1, prov.Generated, "http://v1"))
	a.Fold(statement.New(act1, "http://example.org/unrelated", "http://something"))

	rec := a.Map().Get(act1)
	require.NotNil(t, rec)
	assert.Equal(t, "http://v1", rec.Version)
	assert.Equal(t, 1, a.Discarded())
}

func TestMapByVersion(t *testing.T) {
	m := Map{
		"a1": {IRI: "a1", Version: "v1"},
		"a2": {IRI: "a2", Version: "v2"},
	}
	assert.Equal(t, "a2", m.ByVersion("v2").IRI)
	assert.Nil(t, m.ByVersion("v3"))
}

func TestRecordDisplay(t *testing.T) {
	r := &Record{
		Message:   `"init"@en`,
		Timestamp: `"2014-05-01T10:00:00Z"^^` + prov.XSDDateTime,
	}
	assert.Equal(t, "init", r.DisplayMessage())
	assert.Equal(t, "2014-05-01T10:00:00Z", r.DisplayTimestamp())
}

func permute(items []statement.Statement, k int, visit func([]statement.Statement)) {
	if k == len(items) {
		visit(append([]statement.Statement(nil), items...))
		return
	}
	for i := k; i < len(items); i++ {
		items[k], items[i] = items[i], items[k]
		permute(items, k+1, visit)
		items[k], items[i] = items[i], items[k]
	}
}
