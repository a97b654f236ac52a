// Package orderpolicy holds the order status workflow.
//
// Orders move order_received → processing → shipped → delivered, one step
// at a time, only by an admin. There is no way back. The owner may edit the
// customization only while the order is still order_received.
package orderpolicy

import "github.com/dalemusser/cardhub/internal/domain/models"

// Next returns the status that follows cur, or "" if cur is terminal or
// unknown.
func Next(cur string) string {
	for i, s := range models.OrderStatuses {
		if s == cur && i+1 < len(models.OrderStatuses) {
			return models.OrderStatuses[i+1]
		}
	}
	return ""
}

// CanAdvance reports whether an order in status from may move to to.
func CanAdvance(from, to string) bool {
	return to != "" && Next(from) == to
}

// OwnerCanEdit reports whether the owner may still change an order.
func OwnerCanEdit(status string) bool {
	return status == models.OrderReceived
}

// IsTerminal reports whether no further transition exists.
func IsTerminal(status string) bool {
	return status == models.OrderDelivered
}
