package planstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	key   string
	value []byte
}

func (e *fakeEntry) Bucket() string             { return "test" }
func (e *fakeEntry) Key() string                { return e.key }
func (e *fakeEntry) Value() []byte              { return e.value }
func (e *fakeEntry) Revision() uint64           { return 1 }
func (e *fakeEntry) Created() time.Time         { return time.Time{} }
func (e *fakeEntry) Delta() uint64              { return 0 }
func (e *fakeEntry) Operation() nats.KeyValueOp { return nats.KeyValuePut }

type fakeKV struct {
	data map[string][]byte
	keys []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Put(key string, value []byte) (uint64, error) {
	if _, exists := f.data[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.data[key] = value
	return 1, nil
}

func (f *fakeKV) Get(key string) (nats.KeyValueEntry, error) {
	value, ok := f.data[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	return &fakeEntry{key: key, value: value}, nil
}

func (f *fakeKV) Keys(_ ...nats.WatchOpt) ([]string, error) {
	if len(f.keys) == 0 {
		return nil, nats.ErrNoKeysFound
	}
	return f.keys, nil
}

func sampleRecipes() []Recipe {
	return []Recipe{
		{
			Name:        "Lentil Curry",
			Description: "Hearty red lentil curry",
			Ingredients: "lentils, coconut milk, spices",
			Nutrition:   "520 kcal, 24g protein",
			Time:        "35 minutes",
		},
	}
}

func TestSavePlan(t *testing.T) {
	kv := newFakeKV()
	store := newWithKV(kv, nil)

	id, err := store.SavePlan(context.Background(), "alice", "high protein dinner", sampleRecipes())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, kv.keys, 1)
	assert.Equal(t, "alice."+id, kv.keys[0])

	var record Record
	require.NoError(t, json.Unmarshal(kv.data[kv.keys[0]], &record))
	assert.Equal(t, "alice", record.UserID)
	assert.Equal(t, "high protein dinner", record.RequestText)
	assert.Equal(t, sampleRecipes(), record.Recipes)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestSavePlan_Validation(t *testing.T) {
	store := newWithKV(newFakeKV(), nil)
	ctx := context.Background()

	_, err := store.SavePlan(ctx, "", "request", sampleRecipes())
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = store.SavePlan(ctx, "alice", "request", nil)
	assert.ErrorIs(t, err, ErrNoRecipes)
}

func TestSavePlan_CanceledContext(t *testing.T) {
	store := newWithKV(newFakeKV(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.SavePlan(ctx, "alice", "request", sampleRecipes())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSavePlan_SanitizesUserID(t *testing.T) {
	kv := newFakeKV()
	store := newWithKV(kv, nil)

	id, err := store.SavePlan(context.Background(), "alice@example.com", "req", sampleRecipes())
	require.NoError(t, err)
	assert.Equal(t, "alice_example_com."+id, kv.keys[0])
}

func TestListPlans(t *testing.T) {
	kv := newFakeKV()
	store := newWithKV(kv, nil)
	ctx := context.Background()

	_, err := store.SavePlan(ctx, "alice", "first", sampleRecipes())
	require.NoError(t, err)
	_, err = store.SavePlan(ctx, "alice", "second", sampleRecipes())
	require.NoError(t, err)
	_, err = store.SavePlan(ctx, "bob", "other", sampleRecipes())
	require.NoError(t, err)

	records, err := store.ListPlans(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].RequestText)
	assert.Equal(t, "second", records[1].RequestText)
}

func TestListPlans_Empty(t *testing.T) {
	store := newWithKV(newFakeKV(), nil)

	records, err := store.ListPlans(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}
