package remote

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/AnshRaj112/wellsync/internal/models"
)

// The remote is spreadsheet backed: numbers may come back as strings, nested
// objects as JSON text, and lists as comma separated cells. The helpers below
// read through all of those shapes.

func numeric(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func text(r gjson.Result) (string, bool) {
	if !r.Exists() || r.Type == gjson.Null {
		return "", false
	}
	s := strings.TrimSpace(r.String())
	return s, s != ""
}

// nested returns r parsed as an object, decoding JSON held in a string cell.
func nested(r gjson.Result) gjson.Result {
	if r.Type == gjson.String {
		s := strings.TrimSpace(r.Str)
		if gjson.Valid(s) {
			return gjson.Parse(s)
		}
	}
	return r
}

func stringList(r gjson.Result) []string {
	r = nested(r)
	out := []string{}
	if r.IsArray() {
		for _, v := range r.Array() {
			if s, ok := text(v); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := text(r); ok {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// sanitizeProfile coerces a loosely typed profile object. Fields that are
// missing or not numeric keep the default profile's values.
func sanitizeProfile(r gjson.Result) *models.Profile {
	r = nested(r)
	if !r.IsObject() {
		return nil
	}
	p := models.DefaultProfile()

	if s, ok := text(r.Get("gender")); ok {
		p.Gender = s
	}
	if s, ok := text(r.Get("healthCondition")); ok {
		p.HealthCondition = s
	}
	floats := map[string]*float64{
		"weight":        &p.Weight,
		"height":        &p.Height,
		"waist":         &p.Waist,
		"hip":           &p.Hip,
		"activityLevel": &p.ActivityLevel,
	}
	for field, dst := range floats {
		if f, ok := numeric(r.Get(field)); ok {
			*dst = f
		}
	}
	ints := map[string]*int{
		"age":   &p.Age,
		"xp":    &p.XP,
		"level": &p.Level,
	}
	for field, dst := range ints {
		if f, ok := numeric(r.Get(field)); ok {
			*dst = int(f)
		}
	}

	if pr := nested(r.Get("pillars")); pr.IsObject() {
		var pillars models.Pillars
		scores := map[string]*int{
			"nutrition":  &pillars.Nutrition,
			"activity":   &pillars.Activity,
			"sleep":      &pillars.Sleep,
			"stress":     &pillars.Stress,
			"social":     &pillars.Social,
			"substances": &pillars.Substances,
		}
		for field, dst := range scores {
			if f, ok := numeric(pr.Get(field)); ok {
				*dst = int(f)
			}
		}
		pillars = pillars.Clamp()
		p.Pillars = &pillars
	}

	if b := r.Get("badges"); b.Exists() {
		p.Badges = stringList(b)
	}
	return &p
}

// entryTime reads the "date" of a raw entry. Unparseable dates sort last.
func entryTime(raw json.RawMessage) time.Time {
	d := gjson.GetBytes(raw, "date")
	if t, ok := models.ParseDate(strings.TrimSpace(d.String())); ok {
		return t
	}
	if ms, ok := numeric(d); ok {
		return time.UnixMilli(int64(ms))
	}
	return time.Time{}
}

// sortNewestFirst orders entries by date descending. Remote order is not
// trusted; ties keep their relative order.
func sortNewestFirst(entries []json.RawMessage) {
	times := make(map[int]time.Time, len(entries))
	idx := make([]int, len(entries))
	for i := range entries {
		idx[i] = i
		times[i] = entryTime(entries[i])
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return times[idx[a]].After(times[idx[b]])
	})
	sorted := make([]json.RawMessage, len(entries))
	for i, j := range idx {
		sorted[i] = entries[j]
	}
	copy(entries, sorted)
}

// entryNumbers lists the numeric fields of each collection's entries. The
// value is true for integer fields. Nested fields use dotted paths.
var entryNumbers = map[models.CollectionType]map[string]bool{
	models.BMIHistory:  {"value": false},
	models.TDEEHistory: {"value": false, "bmr": false},
	models.FoodHistory: {
		"analysis.calories":    false,
		"analysis.protein":     false,
		"analysis.carbs":       false,
		"analysis.fat":         false,
		"analysis.healthScore": true,
	},
	models.WaterHistory:    {"amount": false},
	models.CalorieHistory:  {"amount": false},
	models.ActivityHistory: {"burned": false},
	models.SleepHistory:    {"hours": false, "quality": true},
	models.MoodHistory:     {"mood": true},
	models.HabitHistory:    {"amount": false},
	models.SocialHistory:   {"minutes": true},
	models.QuizHistory:     {"score": true, "total": true},
}

// CoerceEntry rewrites a loosely typed entry of collection t so it decodes
// into the typed entry: numeric fields are read out of strings, a numeric
// date becomes RFC 3339 and other numbers or booleans become text. ok is false
// only when raw is not an object.
func CoerceEntry(t models.CollectionType, raw json.RawMessage) (json.RawMessage, bool) {
	r := nested(gjson.ParseBytes(raw))
	if !r.IsObject() {
		return nil, false
	}
	fields := coerceObject(r, entryNumbers[t], "")
	if d := r.Get("date"); d.Type == gjson.Number {
		fields["date"] = entryTime(json.RawMessage(r.Raw)).UTC().Format(time.RFC3339)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(r.Raw), true
	}
	return out, true
}

func coerceObject(r gjson.Result, nums map[string]bool, prefix string) map[string]any {
	out := make(map[string]any)
	r.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		path := prefix + key
		if integer, ok := nums[path]; ok {
			// Unreadable numbers are left out and decode as zero.
			if f, ok := numeric(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
				if integer {
					f = math.Trunc(f)
				}
				out[key] = f
			}
			return true
		}
		if obj := nested(v); obj.IsObject() && hasPathPrefix(nums, path+".") {
			out[key] = coerceObject(obj, nums, path+".")
			return true
		}
		if v.Type == gjson.Number || v.Type == gjson.True || v.Type == gjson.False {
			out[key] = v.Raw
			return true
		}
		out[key] = json.RawMessage(v.Raw)
		return true
	})
	return out
}

func hasPathPrefix(nums map[string]bool, prefix string) bool {
	for path := range nums {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// typedEntries is rawEntries with every entry coerced for collection t.
func typedEntries(t models.CollectionType, r gjson.Result) ([]json.RawMessage, bool) {
	entries, ok := rawEntries(r)
	if !ok {
		return nil, false
	}
	for i, e := range entries {
		entries[i], _ = CoerceEntry(t, e)
	}
	return entries, true
}

// rawEntries extracts the elements of an array result, decoding arrays that
// arrive as JSON text. ok is false when r is not an array at all.
func rawEntries(r gjson.Result) ([]json.RawMessage, bool) {
	r = nested(r)
	if !r.IsArray() {
		return nil, false
	}
	out := []json.RawMessage{}
	for _, v := range r.Array() {
		v = nested(v)
		if !v.IsObject() {
			continue
		}
		out = append(out, json.RawMessage(v.Raw))
	}
	return out, true
}

// parseSnapshot returns nil when data is not an object.
func parseSnapshot(data []byte) *Snapshot {
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil
	}
	snap := &Snapshot{
		Profile:     sanitizeProfile(root.Get("profile")),
		Collections: make(map[models.CollectionType][]json.RawMessage),
	}
	for _, t := range models.CollectionTypes {
		entries, ok := typedEntries(t, root.Get(string(t)))
		if !ok {
			continue
		}
		sortNewestFirst(entries)
		snap.Collections[t] = entries
	}
	return snap
}

func parseAdminSnapshot(data []byte) *AdminSnapshot {
	root := gjson.ParseBytes(data)
	snap := &AdminSnapshot{
		Profiles:    make(map[string]models.Profile),
		Collections: make(map[string]map[models.CollectionType][]json.RawMessage),
		LoginLogs:   []models.LoginLog{},
	}

	for _, row := range nested(root.Get("profiles")).Array() {
		row = nested(row)
		username, ok := text(row.Get("username"))
		if !ok {
			continue
		}
		if p := sanitizeProfile(row); p != nil {
			snap.Profiles[username] = *p
		}
	}

	for _, t := range models.CollectionTypes {
		entries, ok := typedEntries(t, root.Get(string(t)))
		if !ok {
			continue
		}
		for _, e := range entries {
			username, ok := text(gjson.GetBytes(e, "username"))
			if !ok {
				continue
			}
			if snap.Collections[username] == nil {
				snap.Collections[username] = make(map[models.CollectionType][]json.RawMessage)
			}
			snap.Collections[username][t] = append(snap.Collections[username][t], e)
		}
	}
	for _, byType := range snap.Collections {
		for _, entries := range byType {
			sortNewestFirst(entries)
		}
	}

	for _, row := range nested(root.Get("loginLogs")).Array() {
		row = nested(row)
		log := models.LoginLog{
			Username:    row.Get("username").String(),
			DisplayName: row.Get("displayName").String(),
			Role:        models.NormalizeRole(row.Get("role").String()),
		}
		if t, ok := models.ParseDate(row.Get("timestamp").String()); ok {
			log.CreatedAt = t
		}
		snap.LoginLogs = append(snap.LoginLogs, log)
	}
	sort.SliceStable(snap.LoginLogs, func(i, j int) bool {
		return snap.LoginLogs[i].CreatedAt.After(snap.LoginLogs[j].CreatedAt)
	})
	return snap
}
