package services

import (
	"context"
	"fmt"
	"strings"

	"docflow_app_go/models"
	"docflow_app_go/services/routing"
)

// AssignmentNotifier emails supervisors and specialists when a case is
// assigned to them. It implements routing.Notifier.
type AssignmentNotifier struct {
	sender EmailSender
	appURL string
}

// NewAssignmentNotifier creates an AssignmentNotifier
func NewAssignmentNotifier(sender EmailSender, appURL string) *AssignmentNotifier {
	return &AssignmentNotifier{sender: sender, appURL: strings.TrimSuffix(appURL, "/")}
}

func (n *AssignmentNotifier) CaseAssigned(_ context.Context, c *models.Correspondence, assignee *models.User, by routing.Actor) {
	if assignee == nil || assignee.Email == "" {
		return
	}
	n.sender.SendAsync(BuildCaseAssignedEmail(assignee.Email, CaseAssignedEmailData{
		AssigneeName:  assignee.Label(),
		AssignedBy:    by.Label(),
		RegExpediente: c.RegExpediente,
		Documento:     c.DocumentoRecibido,
		EnviadoPor:    c.EnviadoPor,
		Estado:        string(c.Estado),
		Instrucciones: c.Instrucciones,
		CaseURL:       CaseURL(n.appURL, c.ID),
	}))
}

// CaseURL is the link to a case in the web client.
func CaseURL(appURL, id string) string {
	return fmt.Sprintf("%s/correspondencia/%s", strings.TrimSuffix(appURL, "/"), id)
}

// InboxURL is the inbox page of the web client.
func InboxURL(appURL string) string {
	return strings.TrimSuffix(appURL, "/") + "/correspondencia"
}
