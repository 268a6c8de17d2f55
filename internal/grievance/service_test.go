package grievance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeGrievanceStore is an in-memory GrievanceStore.
type fakeGrievanceStore struct {
	grievances map[primitive.ObjectID]*Grievance
	users      map[primitive.ObjectID]*User

	// forceCollisions makes the next N inserts fail with a duplicate
	// tracking ID, simulating index collisions.
	forceCollisions int
}

func newFakeStore() *fakeGrievanceStore {
	return &fakeGrievanceStore{
		grievances: make(map[primitive.ObjectID]*Grievance),
		users:      make(map[primitive.ObjectID]*User),
	}
}

func (f *fakeGrievanceStore) CreateGrievance(_ context.Context, g *Grievance) error {
	if f.forceCollisions > 0 {
		f.forceCollisions--
		return ErrDuplicateTrackingID
	}
	for _, existing := range f.grievances {
		if existing.TrackingID == g.TrackingID {
			return ErrDuplicateTrackingID
		}
	}
	copied := *g
	f.grievances[g.ID] = &copied
	return nil
}

func (f *fakeGrievanceStore) FindByID(_ context.Context, id primitive.ObjectID) (*Grievance, error) {
	if g, ok := f.grievances[id]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeGrievanceStore) FindByTrackingID(_ context.Context, trackingID string) (*Grievance, error) {
	for _, g := range f.grievances {
		if g.TrackingID == trackingID {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeGrievanceStore) ListByOwner(_ context.Context, ownerID primitive.ObjectID) ([]*Grievance, error) {
	var out []*Grievance
	for _, g := range f.grievances {
		if g.UserID == ownerID {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeGrievanceStore) ListPendingByOwner(_ context.Context, ownerID primitive.ObjectID) ([]*Grievance, error) {
	var out []*Grievance
	for _, g := range f.grievances {
		if g.UserID == ownerID && (g.Status == StatusPending || g.Status == StatusInProgress) {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeGrievanceStore) ListAll(_ context.Context) ([]*Grievance, error) {
	var out []*Grievance
	for _, g := range f.grievances {
		copied := *g
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeGrievanceStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status, adminResponse string) error {
	g, ok := f.grievances[id]
	if !ok {
		return ErrNotFound
	}
	g.Status = status
	g.AdminResponse = adminResponse
	g.UpdatedAt = time.Now()
	return nil
}

func (f *fakeGrievanceStore) SetLastEmailSent(_ context.Context, id primitive.ObjectID, t time.Time) error {
	if g, ok := f.grievances[id]; ok {
		g.LastEmailSent = &t
	}
	return nil
}

func (f *fakeGrievanceStore) SetReminderSent(_ context.Context, id primitive.ObjectID, t time.Time) error {
	if g, ok := f.grievances[id]; ok {
		g.LastReminderSent = &t
	}
	return nil
}

func (f *fakeGrievanceStore) AppendComment(_ context.Context, id primitive.ObjectID, comment Comment) error {
	g, ok := f.grievances[id]
	if !ok {
		return ErrNotFound
	}
	g.Comments = append(g.Comments, comment)
	return nil
}

func (f *fakeGrievanceStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

type fakeGrievanceNotifier struct {
	statusUpdates []string
	reminders     []string
}

func (f *fakeGrievanceNotifier) SendStatusUpdate(to, trackingID, subject, status string) error {
	f.statusUpdates = append(f.statusUpdates, trackingID+":"+status)
	return nil
}

func (f *fakeGrievanceNotifier) SendReminder(to, trackingID, message string) error {
	f.reminders = append(f.reminders, trackingID)
	return nil
}

func newTestEngine() (*GrievanceService, *fakeGrievanceStore, *fakeGrievanceNotifier) {
	store := newFakeStore()
	notifier := &fakeGrievanceNotifier{}
	return NewGrievanceService(store, notifier), store, notifier
}

func studentActor(store *fakeGrievanceStore) Actor {
	id := primitive.NewObjectID()
	store.users[id] = &User{ID: id, Name: "Jaspreet", Email: "jsingh@gndec.ac.in", Role: "student"}
	return Actor{ID: id, Role: "student"}
}

func adminActor(store *fakeGrievanceStore) Actor {
	id := primitive.NewObjectID()
	store.users[id] = &User{ID: id, Name: "Registrar", Email: "registrar@gndec.ac.in", Role: "admin"}
	return Actor{ID: id, Role: "admin"}
}

func TestSubmit_HappyPath(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)

	g, err := svc.Submit(context.Background(), owner, SubmitRequest{
		Category:    "academic",
		Subject:     "Exam delay",
		Description: "The end-term exam schedule has been delayed twice.",
	})
	require.NoError(t, err)
	require.True(t, ValidTrackingID(g.TrackingID), "got %q", g.TrackingID)
	require.Equal(t, StatusPending, g.Status)
	require.Equal(t, owner.ID, g.UserID)
	require.False(t, g.CreatedAt.IsZero())
}

func TestSubmit_MissingFields(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)

	cases := []SubmitRequest{
		{Subject: "s", Description: "d"},
		{Category: "academic", Description: "d"},
		{Category: "academic", Subject: "s"},
	}
	for _, req := range cases {
		_, err := svc.Submit(context.Background(), owner, req)
		require.ErrorIs(t, err, ErrMissingFields)
	}

	_, err := svc.Submit(context.Background(), owner, SubmitRequest{
		Category: "gardening", Subject: "s", Description: "d",
	})
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestSubmit_RetriesOnCollisionThenSucceeds(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)
	store.forceCollisions = maxTrackingAttempts - 1

	g, err := svc.Submit(context.Background(), owner, SubmitRequest{
		Category: "hostel", Subject: "Water supply", Description: "No water on 3rd floor.",
	})
	require.NoError(t, err)
	require.True(t, ValidTrackingID(g.TrackingID))
}

func TestSubmit_CollisionExhaustion(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)
	store.forceCollisions = maxTrackingAttempts

	_, err := svc.Submit(context.Background(), owner, SubmitRequest{
		Category: "hostel", Subject: "Water supply", Description: "No water on 3rd floor.",
	})
	require.ErrorIs(t, err, ErrTrackingExhausted)
}

func submitOne(t *testing.T, svc *GrievanceService, owner Actor) *Grievance {
	t.Helper()
	g, err := svc.Submit(context.Background(), owner, SubmitRequest{
		Category: "academic", Subject: "Exam delay", Description: "Schedule delayed twice.",
	})
	require.NoError(t, err)
	return g
}

func TestTrack_AccessControl(t *testing.T) {
	svc, store, _ := newTestEngine()
	ctx := context.Background()
	owner := studentActor(store)
	stranger := studentActor(store)
	admin := adminActor(store)

	g := submitOne(t, svc, owner)

	// Owner and admin see the grievance.
	got, err := svc.Track(ctx, owner, g.TrackingID)
	require.NoError(t, err)
	require.Equal(t, g.TrackingID, got.TrackingID)

	_, err = svc.Track(ctx, admin, g.TrackingID)
	require.NoError(t, err)

	// Another student gets access-denied, not not-found.
	_, err = svc.Track(ctx, stranger, g.TrackingID)
	require.ErrorIs(t, err, ErrAccessDenied)

	// A missing grievance is not-found even for the admin.
	unknown := "GR-0000"
	if g.TrackingID == unknown {
		unknown = "GR-0001"
	}
	_, err = svc.Track(ctx, admin, unknown)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheck_ReturnsSummary(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)
	g := submitOne(t, svc, owner)

	summary, err := svc.Check(context.Background(), owner, g.TrackingID)
	require.NoError(t, err)
	require.Equal(t, g.TrackingID, summary.TrackingID)
	require.Equal(t, StatusPending, summary.Status)
	require.Equal(t, "Exam delay", summary.Subject)
}

func TestUpdateStatus_RoleGateAndNotification(t *testing.T) {
	svc, store, notifier := newTestEngine()
	ctx := context.Background()
	owner := studentActor(store)
	admin := adminActor(store)

	g := submitOne(t, svc, owner)

	// The owner cannot change status.
	_, err := svc.UpdateStatus(ctx, owner, g.ID, StatusResolved, "")
	require.ErrorIs(t, err, ErrStatusAccessDenied)

	// Admin resolves; the owner's subsequent track sees the change.
	_, err = svc.UpdateStatus(ctx, admin, g.ID, StatusResolved, "Schedule fixed.")
	require.NoError(t, err)

	got, err := svc.Track(ctx, owner, g.TrackingID)
	require.NoError(t, err)
	require.Equal(t, StatusResolved, got.Status)
	require.Equal(t, "Schedule fixed.", got.AdminResponse)
	require.Len(t, notifier.statusUpdates, 1)
}

func TestUpdateStatus_Idempotent(t *testing.T) {
	svc, store, _ := newTestEngine()
	ctx := context.Background()
	owner := studentActor(store)
	admin := adminActor(store)

	g := submitOne(t, svc, owner)

	first, err := svc.UpdateStatus(ctx, admin, g.ID, StatusInProgress, "Assigned.")
	require.NoError(t, err)
	second, err := svc.UpdateStatus(ctx, admin, g.ID, StatusInProgress, "Assigned.")
	require.NoError(t, err)

	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.AdminResponse, second.AdminResponse)

	stored, _ := store.FindByID(ctx, g.ID)
	require.Equal(t, StatusInProgress, stored.Status)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)
	admin := adminActor(store)
	g := submitOne(t, svc, owner)

	_, err := svc.UpdateStatus(context.Background(), admin, g.ID, "escalated", "")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSendReminder_OnlyWhileOpen(t *testing.T) {
	svc, store, notifier := newTestEngine()
	ctx := context.Background()
	owner := studentActor(store)
	admin := adminActor(store)

	g := submitOne(t, svc, owner)

	require.NoError(t, svc.SendReminder(ctx, owner, g.TrackingID, "Any update?"))
	require.Len(t, notifier.reminders, 1)

	stored, _ := store.FindByID(ctx, g.ID)
	require.NotNil(t, stored.LastReminderSent)
	// The reminder message is not persisted on the record.
	require.Empty(t, stored.Comments)

	_, err := svc.UpdateStatus(ctx, admin, g.ID, StatusResolved, "Done.")
	require.NoError(t, err)

	before, _ := store.FindByID(ctx, g.ID)
	err = svc.SendReminder(ctx, owner, g.TrackingID, "Still waiting?")
	require.ErrorIs(t, err, ErrReminderNotOpen)

	after, _ := store.FindByID(ctx, g.ID)
	require.Equal(t, before.LastReminderSent, after.LastReminderSent, "state must be unchanged")
	require.Len(t, notifier.reminders, 1)
}

func TestSendReminder_AccessControl(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)
	stranger := studentActor(store)
	g := submitOne(t, svc, owner)

	err := svc.SendReminder(context.Background(), stranger, g.TrackingID, "hi")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestListAll_RequiresPrivilegedRole(t *testing.T) {
	svc, store, _ := newTestEngine()
	owner := studentActor(store)
	admin := adminActor(store)
	submitOne(t, svc, owner)

	_, err := svc.ListAll(context.Background(), owner)
	require.ErrorIs(t, err, ErrStatusAccessDenied)

	all, err := svc.ListAll(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestListPendingMine_FiltersClosed(t *testing.T) {
	svc, store, _ := newTestEngine()
	ctx := context.Background()
	owner := studentActor(store)
	admin := adminActor(store)

	open := submitOne(t, svc, owner)
	closed := submitOne(t, svc, owner)
	_, err := svc.UpdateStatus(ctx, admin, closed.ID, StatusResolved, "")
	require.NoError(t, err)

	pending, err := svc.ListPendingMine(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, open.TrackingID, pending[0].TrackingID)
}

func TestAddComment(t *testing.T) {
	svc, store, _ := newTestEngine()
	ctx := context.Background()
	owner := studentActor(store)
	stranger := studentActor(store)
	g := submitOne(t, svc, owner)

	_, err := svc.AddComment(ctx, owner, g.TrackingID, "")
	require.ErrorIs(t, err, ErrEmptyComment)

	_, err = svc.AddComment(ctx, stranger, g.TrackingID, "hello")
	require.ErrorIs(t, err, ErrAccessDenied)

	updated, err := svc.AddComment(ctx, owner, g.TrackingID, "Please expedite.")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	require.Equal(t, owner.ID, updated.Comments[0].UserID)
	require.False(t, updated.Comments[0].IsEmailReply)
}
