package activity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArchiver_DrainsOnClose(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("Save", mock.Anything, mock.AnythingOfType("*activity.Annotation")).Return(nil).Times(3)

	a := activity.NewArchiver(activity.NewService(repo, nil), 8, nil)
	ts := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	for _, id := range []string{"n1", "n2", "n3"} {
		a.Submit(activity.Annotation{ID: id, InstanceID: "rf", Type: activity.TypeNew, Timestamp: ts})
	}
	a.Close()

	repo.AssertExpectations(t)
}

func TestArchiver_IgnoresSubmitAfterClose(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	a := activity.NewArchiver(activity.NewService(repo, nil), 1, nil)
	a.Close()
	a.Close()

	a.Submit(activity.Annotation{ID: "late", Type: activity.TypeGone})
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestArchiver_ContinuesAfterWriteFailure(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("Save", mock.Anything, mock.MatchedBy(func(a *activity.Annotation) bool { return a.ID == "bad" })).
		Return(errors.New("disk full")).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(a *activity.Annotation) bool { return a.ID == "good" })).
		Return(nil).Once()

	a := activity.NewArchiver(activity.NewService(repo, nil), 4, nil)
	a.Submit(activity.Annotation{ID: "bad", Type: activity.TypeBurst})
	a.Submit(activity.Annotation{ID: "good", Type: activity.TypeBurst})
	a.Close()

	repo.AssertExpectations(t)
	require.Len(t, repo.Calls, 2)
}
