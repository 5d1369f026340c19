// internal/service/notification/templates.go
package notification

import (
	"fmt"
	"strings"
)

type Template string

const (
	TemplateConfirmation Template = "confirmation"
	TemplateApproval     Template = "approval"
	TemplateNearFront    Template = "near_front"
	TemplateYourTurn     Template = "your_turn"
)

// Message is the contract handed to a Gateway.
type Message struct {
	Template   Template `json:"template"`
	EntryID    string   `json:"entryId"`
	BusinessID string   `json:"businessId"`
	Phone      string   `json:"phone"`
	Text       string   `json:"text"`
}

func confirmationText(businessName string, rank, wait int, statusURL string) string {
	return fmt.Sprintf(
		"Welcome to %s! You're #%d in line. Estimated wait: %d minutes. Track your status: %s",
		businessName, rank, wait, statusURL,
	)
}

func approvalText(businessName string, position, wait int) string {
	return fmt.Sprintf(
		"%s: You're approved and #%d in line. Estimated wait: %d minutes.",
		businessName, position, wait,
	)
}

func nearFrontText(businessName string) string {
	return fmt.Sprintf("%s: You're next! Please head over now.", businessName)
}

func yourTurnText(businessName string) string {
	return fmt.Sprintf("%s: It's your turn. Please come to the front desk.", businessName)
}

func statusURL(baseURL, entryID string) string {
	return strings.TrimRight(baseURL, "/") + "/queue/" + entryID
}
