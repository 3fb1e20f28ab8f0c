package notification

import (
	"fmt"
	"html"
)

// ApprovalRequestFields fills the approval-requested email.
type ApprovalRequestFields struct {
	TicketID     string
	Description  string
	CategoryName string
	CreatorName  string
	ApproveURL   string
	RejectURL    string
}

// AssignmentFields fills the assignment-made email.
type AssignmentFields struct {
	TicketID     string
	Description  string
	CategoryName string
	CreatorName  string
	MemberName   string
}

// ApprovalRequestMessage renders the approval request sent to one approver.
func ApprovalRequestMessage(recipient string, fields ApprovalRequestFields) Message {
	body := fmt.Sprintf(`<html><body>
<h2>Ticket Approval Request</h2>
<p>Hello,</p>
<p>A new ticket requires your approval.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
<tr><td style="padding: 8px; font-weight: bold;">Ticket ID:</td><td style="padding: 8px;">#%s</td></tr>
<tr><td style="padding: 8px; font-weight: bold;">Description:</td><td style="padding: 8px;">%s</td></tr>
<tr><td style="padding: 8px; font-weight: bold;">Category:</td><td style="padding: 8px;">%s</td></tr>
<tr><td style="padding: 8px; font-weight: bold;">Created by:</td><td style="padding: 8px;">%s</td></tr>
</table>
<p>
<a href="%s" style="background-color: #28a745; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block; margin-right: 10px;">Approve Ticket</a>
<a href="%s" style="background-color: #dc3545; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Reject Ticket</a>
</p>
<p style="color: #666; font-size: 12px;">This link is valid for 7 days.</p>
<p>Thank you,<br>Ticketing System</p>
</body></html>`,
		html.EscapeString(fields.TicketID),
		html.EscapeString(fields.Description),
		html.EscapeString(fields.CategoryName),
		html.EscapeString(fields.CreatorName),
		fields.ApproveURL,
		fields.RejectURL,
	)
	return Message{
		Kind:      KindApprovalRequested,
		Recipient: recipient,
		Subject:   fmt.Sprintf("Ticket Approval Request - #%s", fields.TicketID),
		HTMLBody:  body,
	}
}

// AssignmentMessage renders the notification sent to the assigned member.
func AssignmentMessage(recipient string, fields AssignmentFields) Message {
	body := fmt.Sprintf(`<html><body>
<h2>New Ticket Assigned</h2>
<p>Hello %s,</p>
<p>A new ticket has been assigned to you.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
<tr><td style="padding: 8px; font-weight: bold;">Ticket ID:</td><td style="padding: 8px;">#%s</td></tr>
<tr><td style="padding: 8px; font-weight: bold;">Description:</td><td style="padding: 8px;">%s</td></tr>
<tr><td style="padding: 8px; font-weight: bold;">Category:</td><td style="padding: 8px;">%s</td></tr>
<tr><td style="padding: 8px; font-weight: bold;">Created by:</td><td style="padding: 8px;">%s</td></tr>
</table>
<p>Please log in to the ticketing system to view details and update the status.</p>
<p>Thank you,<br>Ticketing System</p>
</body></html>`,
		html.EscapeString(fields.MemberName),
		html.EscapeString(fields.TicketID),
		html.EscapeString(fields.Description),
		html.EscapeString(fields.CategoryName),
		html.EscapeString(fields.CreatorName),
	)
	return Message{
		Kind:      KindAssignmentMade,
		Recipient: recipient,
		Subject:   fmt.Sprintf("New Ticket Assigned - #%s", fields.TicketID),
		HTMLBody:  body,
	}
}
