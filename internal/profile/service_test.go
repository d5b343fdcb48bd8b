package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nourishlabs/mealpland/internal/vectorstore"
)

// MockStore is a testify mock of vectorstore.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Search(ctx context.Context, query string, k int, filters map[string]any) ([]vectorstore.SearchResult, error) {
	args := m.Called(ctx, query, k, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorstore.SearchResult), args.Error(1)
}

func (m *MockStore) DeleteDocuments(ctx context.Context, ids []string) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func TestService_Save(t *testing.T) {
	store := new(MockStore)
	store.On("AddDocuments", mock.Anything, mock.MatchedBy(func(docs []vectorstore.Document) bool {
		return len(docs) == 1 &&
			docs[0].Content == "vegetarian, 70kg" &&
			docs[0].Metadata["user_id"] == "alice"
	})).Return([]string{"x"}, nil)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	id, err := svc.Save(context.Background(), "alice", "vegetarian, 70kg")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	store.AssertExpectations(t)
}

func TestService_SaveDeterministicID(t *testing.T) {
	store := new(MockStore)
	store.On("AddDocuments", mock.Anything, mock.Anything).Return([]string{"x"}, nil)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	ctx := context.Background()
	id1, err := svc.Save(ctx, "alice", "vegetarian")
	require.NoError(t, err)
	id2, err := svc.Save(ctx, "alice", "vegetarian")
	require.NoError(t, err)
	id3, err := svc.Save(ctx, "bob", "vegetarian")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "same user and content must map to the same ID")
	assert.NotEqual(t, id1, id3, "different users must not collide")
}

func TestService_SaveValidation(t *testing.T) {
	svc, err := NewService(new(MockStore), nil)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), "", "content")
	assert.Error(t, err)

	_, err = svc.Save(context.Background(), "alice", "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestService_Recall(t *testing.T) {
	store := new(MockStore)
	store.On("Search", mock.Anything, "meal planning", DefaultRecallLimit, map[string]any{"user_id": "alice"}).
		Return([]vectorstore.SearchResult{
			{ID: "a", Content: "vegetarian", Score: 0.9},
			{ID: "b", Content: "allergic to peanuts", Score: 0.7},
		}, nil)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	got, err := svc.Recall(context.Background(), "alice", "meal planning")
	require.NoError(t, err)
	assert.Equal(t, "vegetarian\nallergic to peanuts", got)
}

func TestService_RecallNoProfile(t *testing.T) {
	store := new(MockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]vectorstore.SearchResult{}, nil)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	got, err := svc.Recall(context.Background(), "nobody", "anything")
	require.NoError(t, err)
	assert.Empty(t, got, "missing profile degrades to empty, not an error")
}

func TestService_RecallDefaultQuery(t *testing.T) {
	store := new(MockStore)
	store.On("Search", mock.Anything, "dietary profile and nutrition goals", DefaultRecallLimit, mock.Anything).
		Return([]vectorstore.SearchResult{{ID: "a", Content: "vegan"}}, nil)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	got, err := svc.Recall(context.Background(), "alice", "  ")
	require.NoError(t, err)
	assert.Equal(t, "vegan", got)
}

func TestService_RecallStoreError(t *testing.T) {
	store := new(MockStore)
	storeErr := errors.New("backend down")
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, storeErr)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	_, err = svc.Recall(context.Background(), "alice", "q")
	assert.ErrorIs(t, err, storeErr)
}

func TestService_Forget(t *testing.T) {
	store := new(MockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, map[string]any{"user_id": "alice"}).
		Return([]vectorstore.SearchResult{{ID: "a"}, {ID: "b"}}, nil)
	store.On("DeleteDocuments", mock.Anything, []string{"a", "b"}).Return(nil)

	svc, err := NewService(store, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Forget(context.Background(), "alice"))
	store.AssertExpectations(t)
}
