package grievance

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateTrackingID is returned when the unique index rejects an
// insert because the generated tracking ID is already taken.
var ErrDuplicateTrackingID = errors.New("tracking ID already exists")

// GrievanceRepository handles DB operations for grievances. It also
// reads the users collection for owner lookups.
type GrievanceRepository struct {
	collection *mongo.Collection
	users      *mongo.Collection
}

func NewGrievanceRepository(db *mongo.Database) *GrievanceRepository {
	return &GrievanceRepository{
		collection: db.Collection("grievances"),
		users:      db.Collection("users"),
	}
}

func (r *GrievanceRepository) CreateGrievance(ctx context.Context, g *Grievance) error {
	_, err := r.collection.InsertOne(ctx, g)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTrackingID
		}
		return err
	}
	return nil
}

func (r *GrievanceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Grievance, error) {
	var g Grievance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GrievanceRepository) FindByTrackingID(ctx context.Context, trackingID string) (*Grievance, error) {
	var g Grievance
	err := r.collection.FindOne(ctx, bson.M{"tracking_id": trackingID}).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GrievanceRepository) listSorted(ctx context.Context, filter bson.M) ([]*Grievance, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var grievances []*Grievance
	if err := cursor.All(ctx, &grievances); err != nil {
		return nil, err
	}
	return grievances, nil
}

func (r *GrievanceRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*Grievance, error) {
	return r.listSorted(ctx, bson.M{"user_id": ownerID})
}

// ListPendingByOwner returns the owner's grievances that can still take
// a reminder, newest first.
func (r *GrievanceRepository) ListPendingByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*Grievance, error) {
	filter := bson.M{
		"user_id": ownerID,
		"status":  bson.M{"$in": []string{StatusPending, StatusInProgress}},
	}
	return r.listSorted(ctx, filter)
}

func (r *GrievanceRepository) ListAll(ctx context.Context) ([]*Grievance, error) {
	return r.listSorted(ctx, bson.M{})
}

func (r *GrievanceRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status, adminResponse string) error {
	update := bson.M{"$set": bson.M{
		"status":         status,
		"admin_response": adminResponse,
		"updated_at":     time.Now(),
	}}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("grievance not found")
	}
	return nil
}

func (r *GrievanceRepository) SetLastEmailSent(ctx context.Context, id primitive.ObjectID, t time.Time) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_email_sent": t}})
	return err
}

func (r *GrievanceRepository) SetReminderSent(ctx context.Context, id primitive.ObjectID, t time.Time) error {
	update := bson.M{"$set": bson.M{"last_reminder_sent": t, "updated_at": t}}
	_, err := r.collection.UpdateByID(ctx, id, update)
	return err
}

func (r *GrievanceRepository) AppendComment(ctx context.Context, id primitive.ObjectID, comment Comment) error {
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("grievance not found")
	}
	return nil
}

// AppendReply files an inbound email into the matching grievance's
// thread and comment list. It satisfies the notification listener's
// ThreadAppender interface.
func (r *GrievanceRepository) AppendReply(ctx context.Context, trackingID, messageID, subject, from, to, body string, ts time.Time) error {
	now := time.Now()
	update := bson.M{
		"$push": bson.M{
			"email_thread": EmailMessage{
				MessageID: messageID,
				Subject:   subject,
				From:      from,
				To:        to,
				Content:   body,
				Timestamp: ts,
			},
			"comments": Comment{
				Text:           body,
				CreatedAt:      now,
				IsEmailReply:   true,
				EmailMessageID: messageID,
			},
		},
		"$set": bson.M{"last_email_received": now, "updated_at": now},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"tracking_id": trackingID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("grievance not found")
	}
	return nil
}

func (r *GrievanceRepository) FindUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
