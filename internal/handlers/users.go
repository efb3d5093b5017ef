package handlers

import (
	"context"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/quiz"
	"github.com/gunther-tgbot-go/internal/services/storage"
)

// getOrCreateUser loads a user, registering them on first contact. A
// user found mid-quiz without a live session was interrupted by a
// restart; they are moved back to the idle state so the bot does not
// wait for answers to questions that no longer exist.
func getOrCreateUser(ctx context.Context, store storage.Store, scheduler *quiz.Scheduler, userID int64) (*models.User, error) {
	user, err := store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = models.NewUser(userID)
		if err := store.SaveUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	if user.State == models.StateQuiz && scheduler.ActiveSession(userID) == nil {
		user.State = models.StateNext
		if err := store.SaveUser(ctx, user); err != nil {
			return nil, err
		}
	}

	return user, nil
}
