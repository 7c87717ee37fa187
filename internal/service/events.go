package service

import (
	"context"
	"net/url"
	"path"

	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/observer"
)

type runKey struct{}

type run struct {
	userID  string
	comicID string
}

func withRun(ctx context.Context, userID, comicID string) context.Context {
	return context.WithValue(ctx, runKey{}, run{userID: userID, comicID: comicID})
}

func runFrom(ctx context.Context) (run, bool) {
	r, ok := ctx.Value(runKey{}).(run)
	return r, ok
}

// OpinionEventHook forwards per-opinion outcomes of the aggregator to events,
// tagged with the comic being graded
func OpinionEventHook(events observer.Subject) func(context.Context, grading.OpinionEvent) {
	return func(ctx context.Context, e grading.OpinionEvent) {
		event := observer.GradingEvent{
			EventType: observer.OpinionReceived,
			Provider:  e.Provider,
			Posture:   string(e.Posture),
			Success:   e.Err == nil,
		}
		if e.Err != nil {
			event.EventType = observer.OpinionFailed
			event.ErrorMessage = e.Err.Error()
		}
		if r, ok := runFrom(ctx); ok {
			event.UserID, event.ComicID = r.userID, r.comicID
		}
		events.NotifyObservers(ctx, event)
	}
}

// urlFilename keeps the last path element of a photograph URL
func urlFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}
