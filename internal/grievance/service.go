package grievance

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrMissingFields      = errors.New("Category, subject and description are required")
	ErrInvalidCategory    = errors.New("Invalid grievance category")
	ErrInvalidStatus      = errors.New("Invalid grievance status")
	ErrNotFound           = errors.New("Grievance not found")
	ErrAccessDenied       = errors.New("Access denied: you can only view your own grievances")
	ErrStatusAccessDenied = errors.New("Access denied: only staff can update grievance status")
	ErrReminderNotOpen    = errors.New("Reminders can only be sent for pending or in-progress grievances")
	ErrEmptyComment       = errors.New("Comment text is required")
	ErrTrackingExhausted  = errors.New("could not allocate a unique tracking ID")
)

// GrievanceStore is the persistence surface of the lifecycle engine.
type GrievanceStore interface {
	CreateGrievance(ctx context.Context, g *Grievance) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Grievance, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*Grievance, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*Grievance, error)
	ListPendingByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*Grievance, error)
	ListAll(ctx context.Context) ([]*Grievance, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status, adminResponse string) error
	SetLastEmailSent(ctx context.Context, id primitive.ObjectID, t time.Time) error
	SetReminderSent(ctx context.Context, id primitive.ObjectID, t time.Time) error
	AppendComment(ctx context.Context, id primitive.ObjectID, comment Comment) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
}

// Notifier is the slice of the notification dispatcher the lifecycle
// engine uses. Delivery failures never fail the triggering request.
type Notifier interface {
	SendStatusUpdate(to, trackingID, subject, status string) error
	SendReminder(to, trackingID, message string) error
}

type GrievanceService struct {
	repo     GrievanceStore
	notifier Notifier
	now      func() time.Time
}

func NewGrievanceService(repo GrievanceStore, notifier Notifier) *GrievanceService {
	return &GrievanceService{repo: repo, notifier: notifier, now: time.Now}
}

// canView reports whether the actor may see the grievance: the owner
// always can, staff and admins can see everything.
func canView(actor Actor, g *Grievance) bool {
	return actor.Privileged() || g.UserID == actor.ID
}

// Submit files a new grievance for the actor. The tracking ID is
// regenerated on collision a bounded number of times; the store's unique
// index is what actually enforces uniqueness.
func (s *GrievanceService) Submit(ctx context.Context, actor Actor, req SubmitRequest) (*Grievance, error) {
	if req.Category == "" || req.Subject == "" || req.Description == "" {
		return nil, ErrMissingFields
	}
	if !ValidCategory(req.Category) {
		return nil, ErrInvalidCategory
	}

	now := s.now()
	g := &Grievance{
		ID:          primitive.NewObjectID(),
		UserID:      actor.ID,
		Category:    req.Category,
		Subject:     req.Subject,
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusPending,
		Attachments: req.Attachments,
		Comments:    []Comment{},
		EmailThread: []EmailMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if g.Attachments == nil {
		g.Attachments = []Attachment{}
	}

	for attempt := 0; attempt < maxTrackingAttempts; attempt++ {
		trackingID, err := NewTrackingID()
		if err != nil {
			return nil, err
		}
		g.TrackingID = trackingID

		err = s.repo.CreateGrievance(ctx, g)
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, ErrDuplicateTrackingID) {
			return nil, err
		}
	}
	return nil, ErrTrackingExhausted
}

// Track returns the full grievance, restricted to the owner and staff.
// Not-found and access-denied stay distinguishable.
func (s *GrievanceService) Track(ctx context.Context, actor Actor, trackingID string) (*Grievance, error) {
	g, err := s.repo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if !canView(actor, g) {
		return nil, ErrAccessDenied
	}
	return g, nil
}

// Check returns the summary projection under the same access rule as
// Track.
func (s *GrievanceService) Check(ctx context.Context, actor Actor, trackingID string) (*Summary, error) {
	g, err := s.Track(ctx, actor, trackingID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		TrackingID: g.TrackingID,
		Subject:    g.Subject,
		Status:     g.Status,
		CreatedAt:  g.CreatedAt,
	}, nil
}

func (s *GrievanceService) ListMine(ctx context.Context, ownerID primitive.ObjectID) ([]*Grievance, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *GrievanceService) ListPendingMine(ctx context.Context, ownerID primitive.ObjectID) ([]*Grievance, error) {
	return s.repo.ListPendingByOwner(ctx, ownerID)
}

func (s *GrievanceService) ListAll(ctx context.Context, actor Actor) ([]*Grievance, error) {
	if !actor.Privileged() {
		return nil, ErrStatusAccessDenied
	}
	return s.repo.ListAll(ctx)
}

// UpdateStatus sets the status verbatim; there is no transition table,
// so repeating a status is a no-op beyond the updated_at stamp. The
// owner is notified by email as a side effect.
func (s *GrievanceService) UpdateStatus(ctx context.Context, actor Actor, id primitive.ObjectID, status, adminResponse string) (*Grievance, error) {
	if !actor.Privileged() {
		return nil, ErrStatusAccessDenied
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	g, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}

	if err := s.repo.UpdateStatus(ctx, id, status, adminResponse); err != nil {
		return nil, err
	}
	g.Status = status
	g.AdminResponse = adminResponse

	s.notifyStatusUpdate(ctx, g)
	return g, nil
}

func (s *GrievanceService) notifyStatusUpdate(ctx context.Context, g *Grievance) {
	owner, err := s.repo.FindUserByID(ctx, g.UserID)
	if err != nil || owner == nil {
		log.Println("Status notification skipped, owner lookup failed:", err)
		return
	}
	if err := s.notifier.SendStatusUpdate(owner.Email, g.TrackingID, g.Subject, g.Status); err != nil {
		log.Println("Failed to send status update email:", err)
		return
	}
	if err := s.repo.SetLastEmailSent(ctx, g.ID, s.now()); err != nil {
		log.Println("Failed to record last email sent:", err)
	}
}

// SendReminder nudges the staff inbox about an open grievance. Allowed
// for the owner and staff, and only while the grievance is still open.
// The message body is not persisted on the record.
func (s *GrievanceService) SendReminder(ctx context.Context, actor Actor, trackingID, message string) error {
	g, err := s.repo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNotFound
	}
	if !canView(actor, g) {
		return ErrAccessDenied
	}
	if g.Status != StatusPending && g.Status != StatusInProgress {
		return ErrReminderNotOpen
	}

	owner, err := s.repo.FindUserByID(ctx, g.UserID)
	if err != nil {
		return err
	}
	if owner == nil {
		return ErrNotFound
	}

	if err := s.repo.SetReminderSent(ctx, g.ID, s.now()); err != nil {
		return err
	}
	if err := s.notifier.SendReminder(owner.Email, g.TrackingID, message); err != nil {
		log.Println("Failed to send reminder email:", err)
	}
	return nil
}

func (s *GrievanceService) AddComment(ctx context.Context, actor Actor, trackingID, text string) (*Grievance, error) {
	if text == "" {
		return nil, ErrEmptyComment
	}
	g, err := s.repo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if !canView(actor, g) {
		return nil, ErrAccessDenied
	}

	comment := Comment{Text: text, UserID: actor.ID, CreatedAt: s.now()}
	if err := s.repo.AppendComment(ctx, g.ID, comment); err != nil {
		return nil, err
	}
	g.Comments = append(g.Comments, comment)
	return g, nil
}
