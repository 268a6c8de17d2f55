package grievance

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"GrievancePortal/internal/auth"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxAttachments    = 5
	maxAttachmentSize = 10 << 20 // 10MB per file
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

type GrievanceHandler struct {
	service   *GrievanceService
	uploadDir string
}

func NewGrievanceHandler(service *GrievanceService) *GrievanceHandler {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal("Failed to create upload directory:", err)
	}
	return &GrievanceHandler{service: service, uploadDir: dir}
}

func actorFromContext(c echo.Context) (Actor, error) {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return Actor{}, errors.New("missing user claims")
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: id, Role: claims.Role}, nil
}

// statusFor maps lifecycle errors onto the response taxonomy. Access
// denials carry a detail so callers can tell 403 from 404.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrStatusAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrReminderNotOpen),
		errors.Is(err, ErrEmptyComment):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorJSON(c echo.Context, err error) error {
	status := statusFor(err)
	body := map[string]string{"message": err.Error()}
	if errors.Is(err, ErrAccessDenied) {
		body["detail"] = "The grievance exists but does not belong to you"
	}
	if status == http.StatusInternalServerError {
		log.Println("Grievance handler error:", err)
		body["message"] = "Server error"
	}
	return c.JSON(status, body)
}

// Create handles the multipart submission form: text fields plus up to
// five attachments (jpeg, png or pdf, 10MB each).
func (h *GrievanceHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	req := SubmitRequest{
		Category:    c.FormValue("category"),
		Subject:     c.FormValue("subject"),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["attachments"]
	}
	if len(files) > maxAttachments {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "A maximum of 5 attachments is allowed"})
	}

	for _, file := range files {
		attachment, err := h.saveAttachment(file)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
		}
		req.Attachments = append(req.Attachments, *attachment)
	}

	g, err := h.service.Submit(c.Request().Context(), actor, req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"trackingId": g.TrackingID,
		"status":     g.Status,
		"createdAt":  g.CreatedAt,
	})
}

func (h *GrievanceHandler) saveAttachment(file *multipart.FileHeader) (*Attachment, error) {
	if file.Size > maxAttachmentSize {
		return nil, errors.New("Attachments must be 10MB or smaller")
	}
	mimeType := file.Header.Get("Content-Type")
	if !allowedMimeTypes[mimeType] {
		return nil, errors.New("Invalid file type: only JPEG, PNG and PDF are allowed")
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	storedName := uuid.NewString() + filepath.Ext(file.Filename)
	path := filepath.Join(h.uploadDir, storedName)
	dst, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, err
	}

	return &Attachment{
		Filename:   file.Filename,
		StoredName: storedName,
		Path:       path,
		MimeType:   mimeType,
		UploadedAt: time.Now(),
	}, nil
}

func (h *GrievanceHandler) Track(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	g, err := h.service.Track(c.Request().Context(), actor, c.Param("trackingId"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GrievanceHandler) Check(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	summary, err := h.service.Check(c.Request().Context(), actor, c.Param("trackingId"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *GrievanceHandler) ListMine(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	grievances, err := h.service.ListMine(c.Request().Context(), actor.ID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, grievances)
}

func (h *GrievanceHandler) ListPendingMine(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	grievances, err := h.service.ListPendingMine(c.Request().Context(), actor.ID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, grievances)
}

func (h *GrievanceHandler) ListAll(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	grievances, err := h.service.ListAll(c.Request().Context(), actor)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, grievances)
}

func (h *GrievanceHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid grievance ID"})
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	g, err := h.service.UpdateStatus(c.Request().Context(), actor, id, req.Status, req.AdminResponse)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GrievanceHandler) SendReminder(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	var req SendReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	if err := h.service.SendReminder(c.Request().Context(), actor, req.TrackingID, req.Message); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Reminder sent successfully"})
}

func (h *GrievanceHandler) AddComment(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
	}

	var req AddCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	g, err := h.service.AddComment(c.Request().Context(), actor, c.Param("trackingId"), req.Text)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, g)
}
