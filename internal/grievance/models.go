package grievance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

const (
	CategoryAcademic       = "academic"
	CategoryHostel         = "hostel"
	CategoryInfrastructure = "infrastructure"
	CategoryOther          = "other"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

func ValidCategory(category string) bool {
	switch category {
	case CategoryAcademic, CategoryHostel, CategoryInfrastructure, CategoryOther:
		return true
	}
	return false
}

// Attachment is metadata only; the bytes live on disk under the upload
// directory.
type Attachment struct {
	Filename   string    `bson:"filename" json:"filename"`
	StoredName string    `bson:"stored_name" json:"storedName"`
	Path       string    `bson:"path" json:"path"`
	MimeType   string    `bson:"mime_type" json:"mimeType"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploadedAt"`
}

type Comment struct {
	Text           string             `bson:"text" json:"text"`
	UserID         primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	IsEmailReply   bool               `bson:"is_email_reply" json:"isEmailReply"`
	EmailMessageID string             `bson:"email_message_id,omitempty" json:"emailMessageId,omitempty"`
}

type EmailMessage struct {
	MessageID string    `bson:"message_id" json:"messageId"`
	Subject   string    `bson:"subject" json:"subject"`
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	IsRead    bool      `bson:"is_read" json:"isRead"`
}

type Grievance struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"user_id" json:"userId"`
	Category          string             `bson:"category" json:"category"`
	Subject           string             `bson:"subject" json:"subject"`
	Title             string             `bson:"title,omitempty" json:"title,omitempty"`
	Description       string             `bson:"description" json:"description"`
	TrackingID        string             `bson:"tracking_id" json:"trackingId"`
	Status            string             `bson:"status" json:"status"`
	AdminResponse     string             `bson:"admin_response" json:"adminResponse"`
	Attachments       []Attachment       `bson:"attachments" json:"attachments"`
	Comments          []Comment          `bson:"comments" json:"comments"`
	EmailThread       []EmailMessage     `bson:"email_thread" json:"emailThread"`
	LastEmailSent     *time.Time         `bson:"last_email_sent,omitempty" json:"lastEmailSent,omitempty"`
	LastEmailReceived *time.Time         `bson:"last_email_received,omitempty" json:"lastEmailReceived,omitempty"`
	LastReminderSent  *time.Time         `bson:"last_reminder_sent,omitempty" json:"lastReminderSent,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Summary is the light projection returned by the check endpoint.
type Summary struct {
	TrackingID string    `json:"trackingId"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// User mirrors the fields of internal/auth the grievance flows need for
// ownership checks and notification addressing.
type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Role  string             `bson:"role" json:"role"`
}

// Actor is the identity every lifecycle call receives explicitly; there
// is no ambient current user.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a Actor) Privileged() bool {
	return a.Role == "admin" || a.Role == "staff"
}

type SubmitRequest struct {
	Category    string
	Subject     string
	Title       string
	Description string
	Attachments []Attachment
}

type UpdateStatusRequest struct {
	Status        string `json:"status"`
	AdminResponse string `json:"adminResponse"`
}

type SendReminderRequest struct {
	TrackingID string `json:"trackingId"`
	Message    string `json:"message"`
}

type AddCommentRequest struct {
	Text string `json:"text"`
}
