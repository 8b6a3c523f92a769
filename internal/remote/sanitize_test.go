package remote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/AnshRaj112/wellsync/internal/models"
)

func TestSanitizeProfileKeepsDefaultsForJunk(t *testing.T) {
	p := sanitizeProfile(gjson.Parse(`{"age": "", "weight": "heavy", "height": "180", "activityLevel": "1.55", "gender": "  "}`))
	require.NotNil(t, p)
	def := models.DefaultProfile()
	assert.Equal(t, def.Age, p.Age)
	assert.Equal(t, def.Weight, p.Weight)
	assert.Equal(t, def.Gender, p.Gender)
	assert.InDelta(t, 180.0, p.Height, 1e-9)
	assert.InDelta(t, 1.55, p.ActivityLevel, 1e-9)
	assert.Nil(t, p.Pillars)
}

func TestSanitizeProfileRejectsNonObjects(t *testing.T) {
	assert.Nil(t, sanitizeProfile(gjson.Parse(`[]`)))
	assert.Nil(t, sanitizeProfile(gjson.Parse(`"text"`)))
	assert.Nil(t, sanitizeProfile(gjson.Result{}))
}

func TestSortNewestFirstIsStable(t *testing.T) {
	entries := []json.RawMessage{
		json.RawMessage(`{"id":"a","date":"2024-01-01"}`),
		json.RawMessage(`{"id":"b","date":"2024-03-01T09:00:00Z"}`),
		json.RawMessage(`{"id":"c","date":"not a date"}`),
		json.RawMessage(`{"id":"d","date":"2024-01-01"}`),
		json.RawMessage(`{"id":"e","date":"2024-02-10T12:30:00.125Z"}`),
	}
	sortNewestFirst(entries)

	var ids []string
	for _, e := range entries {
		ids = append(ids, gjson.GetBytes(e, "id").String())
	}
	assert.Equal(t, []string{"b", "e", "a", "d", "c"}, ids)
}

func TestRawEntriesSkipsScalars(t *testing.T) {
	entries, ok := rawEntries(gjson.Parse(`[{"date":"2024-01-01"}, 3, "x", null]`))
	require.True(t, ok)
	assert.Len(t, entries, 1)

	_, ok = rawEntries(gjson.Parse(`{"date":"2024-01-01"}`))
	assert.False(t, ok)

	entries, ok = rawEntries(gjson.Parse(`"[{\"date\":\"2024-01-01\"}]"`))
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestCoerceEntryReadsLooseNumbers(t *testing.T) {
	out, ok := CoerceEntry(models.WaterHistory, json.RawMessage(`{"id":7,"date":1709251200000,"amount":" 500 "}`))
	require.True(t, ok)

	var w models.WaterEntry
	require.NoError(t, json.Unmarshal(out, &w))
	assert.Equal(t, "7", w.ID)
	assert.Equal(t, "2024-03-01T00:00:00Z", w.Date)
	assert.InDelta(t, 500.0, w.Amount, 1e-9)
}

func TestCoerceEntryNestedAndIntegerFields(t *testing.T) {
	out, ok := CoerceEntry(models.FoodHistory, json.RawMessage(
		`{"id":"f1","date":"2024-03-01","analysis":"{\"name\":\"oats\",\"calories\":\"150.5\",\"protein\":\"n/a\",\"healthScore\":\"8.6\"}"}`))
	require.True(t, ok)

	var f models.FoodEntry
	require.NoError(t, json.Unmarshal(out, &f))
	assert.Equal(t, "oats", f.Analysis.Name)
	assert.InDelta(t, 150.5, f.Analysis.Calories, 1e-9)
	assert.Zero(t, f.Analysis.Protein)
	assert.Equal(t, 8, f.Analysis.Score)

	out, ok = CoerceEntry(models.MoodHistory, json.RawMessage(`{"id":"m1","date":"2024-03-01","mood":"4","note":"ok"}`))
	require.True(t, ok)
	var m models.MoodEntry
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, 4, m.Mood)
	assert.Equal(t, "ok", m.Note)
}

func TestCoerceEntryRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`3`, `"text"`, `[]`, `null`} {
		_, ok := CoerceEntry(models.WaterHistory, json.RawMessage(raw))
		assert.False(t, ok, raw)
	}
}

func TestParseSnapshotRequiresObject(t *testing.T) {
	assert.Nil(t, parseSnapshot(nil))
	assert.Nil(t, parseSnapshot([]byte(`[]`)))
	assert.Nil(t, parseSnapshot([]byte(`"none"`)))
	assert.NotNil(t, parseSnapshot([]byte(`{}`)))
}
