// Package notify delivers submission outcomes to the author's browser via
// web push.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inkwell/models"
)

type Notifier struct {
	subs         *mongo.Collection
	vapidPublic  string
	vapidPrivate string
	subscriber   string
}

func New(subs *mongo.Collection, vapidPublic, vapidPrivate, subscriber string) *Notifier {
	return &Notifier{
		subs:         subs,
		vapidPublic:  vapidPublic,
		vapidPrivate: vapidPrivate,
		subscriber:   subscriber,
	}
}

// Subscribe saves or replaces a browser's push subscription for an author.
func (n *Notifier) Subscribe(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	_, err := n.subs.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$set":         bson.M{"userId": userID, "sub": sub},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// PostSaved pushes the created/updated outcome to the author. Delivery is
// best-effort in the background; it never affects the submission result.
func (n *Notifier) PostSaved(authorID primitive.ObjectID, created bool, post *models.Post) {
	title := "Post updated"
	if created {
		title = "Post created"
	}
	n.push(authorID, title, post.Title, "/post/"+post.Slug)
}

func (n *Notifier) push(userID primitive.ObjectID, title, body, url string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic in push notification: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var sub models.PushSubscription
		err := n.subs.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
		if err == mongo.ErrNoDocuments {
			return
		}
		if err != nil {
			log.Printf("find push subscription for %s: %v", userID.Hex(), err)
			return
		}

		payload, err := json.Marshal(map[string]interface{}{
			"title": title,
			"body":  body,
			"data": map[string]interface{}{
				"url":       url,
				"timestamp": time.Now().Unix(),
			},
		})
		if err != nil {
			log.Printf("marshal push payload: %v", err)
			return
		}

		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      n.subscriber,
			VAPIDPublicKey:  n.vapidPublic,
			VAPIDPrivateKey: n.vapidPrivate,
			TTL:             30,
		})
		if err != nil {
			log.Printf("send push notification to %s: %v", userID.Hex(), err)
			// Expired subscriptions are pruned so we stop retrying them.
			if resp != nil && resp.StatusCode == 410 {
				if _, delErr := n.subs.DeleteOne(ctx, bson.M{"userId": userID}); delErr != nil {
					log.Printf("delete expired subscription: %v", delErr)
				}
			}
			return
		}
		resp.Body.Close()
	}()
}
