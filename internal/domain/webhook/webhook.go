package webhook

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Webhook is a public trigger endpoint bound to one workflow.
type Webhook struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Title      string    `json:"title" gorm:"not null"`
	Method     string    `json:"method" gorm:"default:'POST'"`
	Path       string    `json:"path" gorm:"uniqueIndex;not null"`
	Header     string    `json:"header"`
	Secret     string    `json:"-"`
	WorkflowID string    `json:"workflowId" gorm:"not null;index"`
	UserID     string    `json:"userId" gorm:"not null;index"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func New(title, method, workflowID, userID, secret string) *Webhook {
	if method == "" {
		method = "POST"
	}
	return &Webhook{
		ID:         uuid.New().String(),
		Title:      title,
		Method:     strings.ToUpper(method),
		Path:       "/webhook/handler/" + uuid.New().String(),
		Secret:     secret,
		WorkflowID: workflowID,
		UserID:     userID,
	}
}

// PathID returns the trailing identifier of the handler path.
func (w *Webhook) PathID() string {
	idx := strings.LastIndex(w.Path, "/")
	if idx < 0 {
		return w.Path
	}
	return w.Path[idx+1:]
}

// AcceptsMethod reports whether the hook accepts the given HTTP method.
func (w *Webhook) AcceptsMethod(method string) bool {
	return strings.EqualFold(w.Method, method)
}
