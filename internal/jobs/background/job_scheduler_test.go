package background

import (
	"context"
	"testing"

	"catalogd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTreeWarmer struct {
	mock.Mock
}

func (m *MockTreeWarmer) ListRoots(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Category), args.Error(1)
}

type MockAssetIndex struct {
	mock.Mock
}

func (m *MockAssetIndex) ImageAssetIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) ListAssetIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMediaStore) Delete(ctx context.Context, assetID string) error {
	args := m.Called(ctx, assetID)
	return args.Error(0)
}

func TestSweepOrphanedMedia_DeletesOnlyUnreferenced(t *testing.T) {
	warmer := new(MockTreeWarmer)
	assets := new(MockAssetIndex)
	media := new(MockMediaStore)

	assets.On("ImageAssetIDs", mock.Anything).Return([]string{"categories/a", "categories/b"}, nil)
	media.On("ListAssetIDs", mock.Anything).Return([]string{"categories/a", "categories/b", "categories/orphan"}, nil)
	media.On("Delete", mock.Anything, "categories/orphan").Return(nil)

	js, err := NewJobScheduler(warmer, assets, media)
	assert.NoError(t, err)
	defer js.Stop()

	js.sweepOrphanedMedia()

	media.AssertNumberOfCalls(t, "Delete", 1)
	media.AssertCalled(t, "Delete", mock.Anything, "categories/orphan")
}

func TestSweepOrphanedMedia_NothingStoredIsNoop(t *testing.T) {
	warmer := new(MockTreeWarmer)
	assets := new(MockAssetIndex)
	media := new(MockMediaStore)

	assets.On("ImageAssetIDs", mock.Anything).Return([]string{}, nil)
	media.On("ListAssetIDs", mock.Anything).Return([]string(nil), nil)

	js, err := NewJobScheduler(warmer, assets, media)
	assert.NoError(t, err)
	defer js.Stop()

	js.sweepOrphanedMedia()

	media.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestWarmTreeCache_CallsListRoots(t *testing.T) {
	warmer := new(MockTreeWarmer)
	assets := new(MockAssetIndex)
	media := new(MockMediaStore)

	warmer.On("ListRoots", mock.Anything).Return([]*models.Category{}, nil)

	js, err := NewJobScheduler(warmer, assets, media)
	assert.NoError(t, err)
	defer js.Stop()

	js.warmTreeCache()

	warmer.AssertNumberOfCalls(t, "ListRoots", 1)
}
