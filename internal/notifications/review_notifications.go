package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/9ssi7/exponent"

	"sponsorhub/internal/domain/storage"
)

type ReviewEvent string

const (
	ReviewPublished ReviewEvent = "PUBLISHED"
	ReviewRejected  ReviewEvent = "REJECTED"
)

// SendReviewNotification tells the author their review was published or
// rejected. Best effort: moderation never blocks on delivery.
func SendReviewNotification(ctx context.Context, push PushSender, store *storage.Container, authorID int64, event ReviewEvent, eventName string) error {
	tokensMap, err := store.PushTokens.GetTokensByUserIDs(ctx, []int64{authorID})
	if err != nil {
		return err
	}
	tokens := tokensMap[authorID]
	if len(tokens) == 0 {
		return errors.New("no push tokens")
	}

	var title, body string
	switch event {
	case ReviewPublished:
		title = "Review Published"
		body = fmt.Sprintf("Your review of %s is now live! 🎉", eventName)
	case ReviewRejected:
		title = "Review Not Published"
		body = fmt.Sprintf("Your review of %s was not approved. Check the moderation note for details.", eventName)
	default:
		title = "Review Update"
		body = fmt.Sprintf("Your review of %s has an update.", eventName)
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":   "review",
				"event":  string(event),
				"screen": "my-reviews-screen",
			},
		})
	}

	_, err = push.Publish(ctx, msgs)
	return err
}
