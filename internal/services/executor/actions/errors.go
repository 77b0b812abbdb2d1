package actions

import (
	"fmt"
	"strings"
)

// MissingFieldError reports required node data fields that are absent.
type MissingFieldError struct {
	NodeType string
	Fields   []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s node missing required fields: %s", e.NodeType, strings.Join(e.Fields, ", "))
}

// CredentialMissingError is returned when a node needs a platform
// credential the user has not configured.
type CredentialMissingError struct {
	Platform string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("no %s credentials found, configure a %s credential first", e.Platform, e.Platform)
}
