package contracts

import (
	"strings"
	"time"
)

// Notification is one durably recorded notification per
// (recipient, signal, investor). Delivery to end-user channels is outside
// this core; only the row is guaranteed.
type Notification struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"org_id"`
	NotificationKey string    `json:"notification_key"`
	RecipientID     string    `json:"recipient_id"`
	SignalID        string    `json:"signal_id"`
	InvestorID      string    `json:"investor_id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"created_at"`
}

// NotificationKey builds the dedup key. Re-running the publisher on
// unchanged targets produces zero new rows.
func NotificationKey(orgID, recipientID, signalID, investorID string) string {
	return strings.Join([]string{orgID, recipientID, signalID, investorID}, "|")
}
