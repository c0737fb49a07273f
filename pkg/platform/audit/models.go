package audit

import (
	"context"
	"time"

	id "bharatkyc/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers rejected or suspicious input: failed OTP checks,
	// camera denials, throttled clients.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine step progress and can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	SessionID id.SessionID
	Action    string
	// Step is the wizard step the action happened on.
	Step     string
	Decision string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

type AuditEvent string

const (
	// Session events
	EventSessionCreated AuditEvent = "session_created"
	EventSessionEnded   AuditEvent = "session_ended"
	EventSessionExpired AuditEvent = "session_expired"
	EventStepEntered    AuditEvent = "step_entered"
	EventMethodChosen   AuditEvent = "method_chosen"

	// Document events
	EventDocumentAccepted   AuditEvent = "document_accepted"
	EventDocumentRejected   AuditEvent = "document_rejected"
	EventDocumentRemoved    AuditEvent = "document_removed"
	EventDocumentsSubmitted AuditEvent = "documents_submitted"

	// OTP events
	EventOTPSent     AuditEvent = "otp_sent"
	EventOTPVerified AuditEvent = "otp_verified"
	EventOTPFailed   AuditEvent = "otp_failed"

	// Face events
	EventCameraDenied  AuditEvent = "camera_denied"
	EventFaceCaptured  AuditEvent = "face_captured"
	EventFaceCompleted AuditEvent = "face_completed"

	// Completion
	EventReferenceIssued AuditEvent = "reference_issued"
	EventReceiptIssued   AuditEvent = "receipt_issued"

	// Rate limit events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentRejected:  CategorySecurity,
	EventOTPFailed:         CategorySecurity,
	EventCameraDenied:      CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
