package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Node types handled by the executor. Unknown types are executed as no-ops.
const (
	NodeTypeStart    = "start"
	NodeTypeEnd      = "end"
	NodeTypeWebhook  = "webhook"
	NodeTypeEmail    = "email"
	NodeTypeTelegram = "telegram"
)

type Workflow struct {
	ID          string       `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null"`
	Enabled     bool         `json:"enabled" gorm:"default:true"`
	Nodes       []Node       `json:"nodes" gorm:"serializer:json"`
	Connections []Connection `json:"connections" gorm:"serializer:json"`
	UserID      string       `json:"userId" gorm:"not null;index"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Node struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Data     map[string]interface{} `json:"data"`
	Position Position               `json:"position"`
}

type Connection struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func New(title, userID string, nodes []Node, connections []Connection) *Workflow {
	if nodes == nil {
		nodes = []Node{}
	}
	if connections == nil {
		connections = []Connection{}
	}
	return &Workflow{
		ID:          uuid.New().String(),
		Title:       title,
		Enabled:     true,
		Nodes:       nodes,
		Connections: connections,
		UserID:      userID,
	}
}

// Validate checks structural integrity before saving. Cycles are permitted;
// the executor's visited set keeps runs finite regardless of graph shape.
func (w *Workflow) Validate() error {
	if w.Title == "" {
		return fmt.Errorf("workflow title is required")
	}

	nodeIDs := make(map[string]struct{}, len(w.Nodes))
	starts := 0
	for _, n := range w.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node id is required")
		}
		if _, dup := nodeIDs[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		nodeIDs[n.ID] = struct{}{}
		if n.Type == NodeTypeStart {
			starts++
		}
	}
	if starts > 1 {
		return fmt.Errorf("workflow has %d start nodes, at most one is allowed", starts)
	}

	for _, c := range w.Connections {
		if _, ok := nodeIDs[c.Source]; !ok {
			return fmt.Errorf("connection %q: source node %q not found", c.ID, c.Source)
		}
		if _, ok := nodeIDs[c.Target]; !ok {
			return fmt.Errorf("connection %q: target node %q not found", c.ID, c.Target)
		}
	}

	return nil
}

// StartNode returns the first node of type start in collection order,
// or nil when the workflow has none.
func (w *Workflow) StartNode() *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Type == NodeTypeStart {
			return &w.Nodes[i]
		}
	}
	return nil
}
