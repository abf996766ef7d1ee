package workspace

import (
	"reflect"
	"testing"

	"github.com/KaramelBytes/tabloom-cli/internal/cleaning"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sample() *dataset.Table {
	t := dataset.New([]string{"Name", "Age", "City"}, []dataset.Row{
		{"Name": dataset.Text("Ann"), "Age": dataset.Text("30"), "City": dataset.Text("Oslo")},
		{"Name": dataset.Text("Bob"), "Age": dataset.Text(""), "City": dataset.Text("Rome")},
		{"Name": dataset.Text("Cid"), "Age": dataset.Text("50"), "City": dataset.Text("")},
	})
	t.Filename = "people.csv"
	return t
}

func TestApplyAndRevertRoundTrip(t *testing.T) {
	orig := sample()
	ws := New(zaptest.NewLogger(t))
	ws.Load(orig)

	for _, op := range []cleaning.Operation{cleaning.FillMean, cleaning.EncodeCategorical, cleaning.RemoveEmpty} {
		_, err := ws.Apply(op)
		require.NoError(t, err)
	}
	assert.Equal(t, []cleaning.Operation{cleaning.FillMean, cleaning.EncodeCategorical, cleaning.RemoveEmpty}, ws.History())
	assert.NotEmpty(t, ws.Changes())
	assert.False(t, reflect.DeepEqual(orig, ws.Table(ViewCleaned)))

	require.NoError(t, ws.Revert())
	assert.True(t, reflect.DeepEqual(orig, ws.Table(ViewCleaned)), "revert must restore the original exactly")
	assert.True(t, reflect.DeepEqual(orig, ws.Table(ViewOriginal)))
	assert.Empty(t, ws.Changes())
	assert.Empty(t, ws.History())
}

func TestApply_UnknownOperationLeavesState(t *testing.T) {
	ws := New(nil)
	ws.Load(sample())
	_, err := ws.Apply(cleaning.FillMedian)
	require.NoError(t, err)
	before := ws.Table(ViewCleaned)

	_, err = ws.Apply("shuffle")
	require.ErrorIs(t, err, cleaning.ErrUnknownOperation)
	assert.Equal(t, before, ws.Table(ViewCleaned))
	assert.Len(t, ws.History(), 1)
}

func TestChangeLogAccumulatesAndLoadClears(t *testing.T) {
	ws := New(nil)
	ws.Load(sample())
	c1, err := ws.Apply(cleaning.FillMean)
	require.NoError(t, err)
	c2, err := ws.Apply(cleaning.FillMode)
	require.NoError(t, err)
	assert.Equal(t, append(c1, c2...), ws.Changes())

	ws.Load(sample())
	assert.Empty(t, ws.Changes())
	assert.Empty(t, ws.History())
}

func TestEmptyWorkspace(t *testing.T) {
	ws := New(nil)
	_, err := ws.Apply(cleaning.FillMean)
	assert.ErrorIs(t, err, ErrNoTable)
	assert.ErrorIs(t, ws.Revert(), ErrNoTable)
	assert.Nil(t, ws.Table(ViewCleaned))
	_, err = ws.Summary()
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestLoadNilEmptiesWorkspace(t *testing.T) {
	ws := New(zaptest.NewLogger(t))
	ws.Load(sample())
	_, err := ws.Apply(cleaning.RemoveEmpty)
	require.NoError(t, err)

	require.NotPanics(t, func() { ws.Load(nil) })
	assert.Nil(t, ws.Table(ViewOriginal))
	assert.Empty(t, ws.Changes())
	assert.Empty(t, ws.History())
	assert.ErrorIs(t, ws.Revert(), ErrNoTable)
}

func TestSummary(t *testing.T) {
	ws := New(nil)
	ws.Load(sample())
	_, err := ws.Apply(cleaning.RemoveEmpty)
	require.NoError(t, err)

	s, err := ws.Summary()
	require.NoError(t, err)
	assert.Equal(t, "people.csv", s.Filename)
	assert.Equal(t, 2, s.Original.MissingValues)
	assert.Equal(t, 0, s.Working.MissingValues)
	assert.Equal(t, 1, s.Working.TotalRows)
	assert.Equal(t, 2, s.ChangeCount)
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewCleaned, v)
	v, err = ParseView("original")
	require.NoError(t, err)
	assert.Equal(t, ViewOriginal, v)
	_, err = ParseView("diff")
	assert.Error(t, err)
}
