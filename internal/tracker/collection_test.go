package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/wellsync/internal/models"
)

func TestAppendPushesFullSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	f.loginWithEndpoint(t, userA)

	entry := models.BMIEntry{Value: 24.9, Category: models.BMICategory(24.9), Date: "2024-05-01T08:00:00Z"}
	f.s.BMI().Append(entry)
	f.s.Wait()

	assert.Equal(t, []models.BMIEntry{entry}, f.s.BMI().Items())
	pushes := f.spy.callsOf(KindPush, "bmiHistory")
	require.Len(t, pushes, 1)
	assert.Equal(t, []models.BMIEntry{entry}, pushes[0].payload)
	assert.Equal(t, userA, pushes[0].user)
	assert.Equal(t, testEndpoint, pushes[0].endpoint)

	second := models.BMIEntry{Value: 25.3, Category: models.BMICategory(25.3), Date: "2024-05-02T08:00:00Z"}
	f.s.BMI().Append(second)
	f.s.Wait()

	pushes = f.spy.callsOf(KindPush, "bmiHistory")
	require.Len(t, pushes, 2)
	assert.Equal(t, []models.BMIEntry{second, entry}, pushes[1].payload)
}

func TestAppendWithoutEndpointStaysLocal(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))

	f.s.Water().Append(models.WaterEntry{ID: "w1", Date: "2024-05-01", Amount: 250})
	f.s.Wait()

	assert.Len(t, f.s.Water().Items(), 1)
	assert.Zero(t, f.spy.total())
	assert.Empty(t, drain(f.s.Completions()))
}

func TestCapKeepsNewestEntries(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))

	quiz := f.s.Quiz()
	require.Equal(t, 20, quiz.Cap())
	for i := 0; i < 27; i++ {
		quiz.Append(models.QuizEntry{ID: fmt.Sprint(i), Date: "2024-05-01", Score: i, Total: 30})
		assert.LessOrEqual(t, quiz.Len(), quiz.Cap())
	}

	items := quiz.Items()
	require.Len(t, items, 20)
	for i, item := range items {
		assert.Equal(t, 26-i, item.Score)
	}
}

func TestEveryCollectionHonorsItsCap(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))

	h, _ := f.s.Collection(models.PlannerHistory)
	for i := 0; i < 15; i++ {
		f.s.Planner().Append(models.PlannerEntry{ID: fmt.Sprint(i), Date: "2024-05-01", Cuisine: "any"})
	}
	assert.Equal(t, 10, h.Len())
	assert.Equal(t, "14", f.s.Planner().Items()[0].ID)
}

func TestClearSendsClearNotPush(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))
	for i := 0; i < 5; i++ {
		f.s.TDEE().Append(models.TDEEEntry{Value: 2200 + float64(i), BMR: 1700, Date: "2024-05-01"})
	}
	require.NoError(t, f.s.SetEndpoint(context.Background(), testEndpoint))
	f.s.Wait()
	f.spy.reset()

	f.s.TDEE().Clear()
	f.s.Wait()

	assert.Empty(t, f.s.TDEE().Items())
	clears := f.spy.callsOf(KindClear, "tdeeHistory")
	require.Len(t, clears, 1)
	assert.Equal(t, userA, clears[0].user)
	assert.Empty(t, f.spy.callsOf(KindPush, ""))
}

func TestEmptyResultsNeverReachTransport(t *testing.T) {
	f := newFixture(t, nil)
	f.loginWithEndpoint(t, userA)
	drain(f.s.Completions())

	water := f.s.Water()
	water.Clear()
	water.Append(models.WaterEntry{ID: "w1", Date: "2024-05-01", Amount: 200})
	water.Clear()
	water.Mutate(func(cur []models.WaterEntry) []models.WaterEntry { return nil })
	f.s.Wait()

	assert.Len(t, f.spy.callsOf(KindClear, "waterHistory"), 2)
	for _, p := range f.spy.callsOf(KindPush, "waterHistory") {
		assert.NotEmpty(t, p.payload)
	}

	var suppressed int
	for _, c := range drain(f.s.Completions()) {
		if c.Outcome == Suppressed {
			suppressed++
			assert.Equal(t, KindPush, c.Command.Kind)
			assert.Equal(t, "waterHistory", c.Command.Type)
		}
	}
	assert.Equal(t, 1, suppressed)
	assert.Empty(t, water.Items())
}

func TestAdminMutationsAreNoOps(t *testing.T) {
	f := newFixture(t, nil)
	f.loginWithEndpoint(t, admin)
	drain(f.s.Completions())
	saves := f.store.Saves()

	f.s.Food().Append(models.FoodEntry{ID: "f1", Date: "2024-05-01", Analysis: models.FoodAnalysis{Name: "apple", Calories: 95}})
	f.s.Food().Mutate(func(cur []models.FoodEntry) []models.FoodEntry {
		t.Fatal("updater must not run for admins")
		return cur
	})
	f.s.Food().Clear()
	prof := f.s.Profile().Get()
	prof.Age = 70
	f.s.Profile().Save(prof)
	f.s.Profile().SavePillars(models.Pillars{Sleep: 9})
	f.s.Wait()

	assert.Empty(t, f.s.Food().Items())
	assert.Equal(t, models.DefaultProfile(), f.s.Profile().Get())
	assert.Equal(t, saves, f.store.Saves(), "no slot writes")
	assert.Zero(t, f.spy.total(), "no remote calls")
	assert.Empty(t, drain(f.s.Completions()), "no commands")
}

func TestLoggedOutMutationsAreNoOps(t *testing.T) {
	f := newFixture(t, nil)
	f.loginWithEndpoint(t, userA)
	f.s.Logout()
	drain(f.s.Completions())
	saves := f.store.Saves()

	f.s.Water().Append(models.WaterEntry{ID: "w1", Date: "2024-05-01", Amount: 250})
	f.s.Water().Mutate(func(cur []models.WaterEntry) []models.WaterEntry {
		t.Fatal("updater must not run while logged out")
		return cur
	})
	f.s.Water().Clear()
	prof := f.s.Profile().Get()
	prof.Age = 52
	f.s.Profile().SaveDetails(prof)
	f.s.Profile().SavePillars(models.Pillars{Social: 6})
	f.s.Wait()

	assert.Empty(t, f.s.Water().Items())
	assert.Equal(t, models.DefaultProfile(), f.s.Profile().Get())
	assert.Equal(t, saves, f.store.Saves(), "no slot writes")
	assert.Zero(t, f.spy.total(), "no remote calls")
	assert.Empty(t, drain(f.s.Completions()), "no commands")
}

func TestGuestMutationsStillPush(t *testing.T) {
	f := newFixture(t, nil)
	f.loginWithEndpoint(t, guest)

	f.s.Social().Append(models.SocialEntry{ID: "s1", Date: "2024-05-01", Kind: "call", Minutes: 20})
	f.s.Wait()

	pushes := f.spy.callsOf(KindPush, "socialHistory")
	require.Len(t, pushes, 1)
	assert.Equal(t, models.RoleGuest, pushes[0].user.Role)
}

func TestTransportFailureKeepsLocalState(t *testing.T) {
	f := newFixture(t, nil)
	f.loginWithEndpoint(t, userA)
	drain(f.s.Completions())
	f.spy.mu.Lock()
	f.spy.fail = true
	f.spy.mu.Unlock()

	f.s.Calories().Append(models.CalorieEntry{ID: "c1", Date: "2024-05-01", Label: "snack", Amount: 150})
	f.s.Wait()

	assert.Len(t, f.s.Calories().Items(), 1)
	completions := drain(f.s.Completions())
	require.NotEmpty(t, completions)
	assert.Equal(t, TransportError, completions[0].Outcome)
	assert.ErrorIs(t, completions[0].Err, ErrTransport)
}

func TestHydrateSkipsNonObjectsAndCaps(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))

	entries := []json.RawMessage{json.RawMessage(`"not an entry"`), json.RawMessage(`[1, 2]`)}
	for i := 0; i < 25; i++ {
		entries = append(entries, json.RawMessage(fmt.Sprintf(`{"id": "%d", "date": "2024-05-01", "score": %d, "total": 10}`, i, i)))
	}
	f.s.Quiz().hydrate(entries)

	items := f.s.Quiz().Items()
	require.Len(t, items, 20)
	assert.Equal(t, "0", items[0].ID)
}

func TestHydrateCoercesLooseEntries(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))

	f.s.Quiz().hydrate([]json.RawMessage{
		json.RawMessage(`{"id": 11, "date": "2024-05-02", "score": "nine", "total": "10"}`),
		json.RawMessage(`{"id": "q1", "date": 1714521600000, "score": "7", "total": 10}`),
	})

	items := f.s.Quiz().Items()
	require.Len(t, items, 2)
	assert.Equal(t, models.QuizEntry{ID: "11", Date: "2024-05-02", Score: 0, Total: 10}, items[0])
	assert.Equal(t, models.QuizEntry{ID: "q1", Date: "2024-05-01T00:00:00Z", Score: 7, Total: 10}, items[1])
}

func TestCorruptSlotFallsBackToEmpty(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))
	require.NoError(t, f.store.Save(string(models.HabitHistory), []byte(`{not json`)))

	assert.Equal(t, []models.HabitEntry{}, f.s.Habits().Items())
	f.s.Habits().Append(models.HabitEntry{ID: "h1", Date: "2024-05-01", Substance: "coffee", Amount: 2})
	assert.Len(t, f.s.Habits().Items(), 1)
}

func TestRawMatchesItems(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.s.Login(userA))
	f.s.Sleep().Append(models.SleepEntry{ID: "s1", Date: "2024-05-01", Hours: 7.5, Quality: 4})

	h, ok := f.s.Collection(models.SleepHistory)
	require.True(t, ok)
	raw := h.Raw()
	require.Len(t, raw, 1)
	assert.JSONEq(t, `{"id":"s1","date":"2024-05-01","hours":7.5,"quality":4}`, string(raw[0]))
}
