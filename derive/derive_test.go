package derive_test

import (
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jobsignals/postpipe/derive"
	"github.com/jobsignals/postpipe/table"
)

func s(v string) *string { return &v }

// helperT is the slice of testing.TB shared by *testing.T and *rapid.T.
type helperT interface {
	Helper()
}

func buildTable(tb helperT, names []string, cols [][]*string) *table.Table {
	tb.Helper()

	builder := array.NewRecordBuilder(table.Pool, table.StringSchema(names))
	defer builder.Release()

	for i, col := range cols {
		sb := builder.Field(i).(*array.StringBuilder)
		for _, v := range col {
			if v == nil {
				sb.AppendNull()
			} else {
				sb.Append(*v)
			}
		}
	}
	return table.New(builder.NewRecord())
}

func TestWithIsRemoteStrictEquality(t *testing.T) {
	tbl := buildTable(t,
		[]string{"remote_allowed"},
		[][]*string{
			{s("1"), s("0"), nil, s("2"), s("yes"), s("1.0"), s(" 1 ")},
		})
	defer tbl.Release()

	out, err := derive.WithIsRemote(tbl, "remote_allowed")
	require.NoError(t, err)
	defer out.Release()

	isRemote, err := out.Booleans(derive.ColIsRemote)
	require.NoError(t, err)

	expected := []bool{true, false, false, false, false, true, true}
	for i, want := range expected {
		assert.False(t, isRemote.IsNull(i), "row %d must be a strict boolean", i)
		assert.Equal(t, want, isRemote.Value(i), "row %d", i)
	}
}

func TestPostingAge(t *testing.T) {
	const tMax = "1713553445000"
	const tMinusDay = "1713467045000"

	tbl := buildTable(t,
		[]string{"original_listed_time"},
		[][]*string{
			{s(tMax), s(tMinusDay), s(tMax), nil},
		})
	defer tbl.Release()

	out, err := derive.WithListedTimeDT(tbl, "original_listed_time")
	require.NoError(t, err)
	out, err = derive.WithPostingAge(out)
	require.NoError(t, err)
	defer out.Release()

	age, err := out.Int64s(derive.ColPostingAge)
	require.NoError(t, err)

	assert.Equal(t, int64(0), age.Value(0))
	assert.Equal(t, int64(1), age.Value(1))
	assert.Equal(t, int64(0), age.Value(2))
	assert.True(t, age.IsNull(3))
}

func TestPostingAgeAllNull(t *testing.T) {
	tbl := buildTable(t,
		[]string{"original_listed_time"},
		[][]*string{
			{nil, s("bogus")},
		})
	defer tbl.Release()

	out, err := derive.WithListedTimeDT(tbl, "original_listed_time")
	require.NoError(t, err)
	out, err = derive.WithPostingAge(out)
	require.NoError(t, err)
	defer out.Release()

	age, err := out.Int64s(derive.ColPostingAge)
	require.NoError(t, err)
	assert.True(t, age.IsNull(0))
	assert.True(t, age.IsNull(1))
}

func TestPostingAgeNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		epochs := rapid.SliceOfN(rapid.Int64Range(0, 2_000_000_000_000), 1, 50).Draw(rt, "epochs")

		values := make([]*string, len(epochs))
		for i, e := range epochs {
			v := strconv.FormatInt(e, 10)
			values[i] = &v
		}

		tbl := buildTable(rt, []string{"original_listed_time"}, [][]*string{values})
		defer tbl.Release()

		out, err := derive.WithListedTimeDT(tbl, "original_listed_time")
		if err != nil {
			rt.Fatal(err)
		}
		out, err = derive.WithPostingAge(out)
		if err != nil {
			rt.Fatal(err)
		}
		defer out.Release()

		age, err := out.Int64s(derive.ColPostingAge)
		if err != nil {
			rt.Fatal(err)
		}

		sawZero := false
		for i := 0; i < age.Len(); i++ {
			if age.Value(i) < 0 {
				rt.Fatalf("row %d: negative age %d", i, age.Value(i))
			}
			if age.Value(i) == 0 {
				sawZero = true
			}
		}
		if !sawZero {
			rt.Fatalf("newest posting must have age 0")
		}
	})
}
