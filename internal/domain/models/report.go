package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report statuses.
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// ReportReasons are the reasons a reporter may pick from.
var ReportReasons = []string{"spam", "impersonation", "harassment", "inappropriate_content", "scam", "other"}

// IsValidReportReason reports whether r is a known report reason.
func IsValidReportReason(r string) bool {
	for _, v := range ReportReasons {
		if v == r {
			return true
		}
	}
	return false
}

// ReportID builds the deterministic report id for a reporter/target pair.
func ReportID(reporterID, reportedUserID primitive.ObjectID) string {
	return reporterID.Hex() + "_" + reportedUserID.Hex()
}

// Report is a complaint filed by one user against another.
type Report struct {
	ID             string              `bson:"_id" json:"id"`
	ReporterID     primitive.ObjectID  `bson:"reporter_id" json:"reporter_id"`
	ReportedUserID primitive.ObjectID  `bson:"reported_user_id" json:"reported_user_id"`
	Reasons        []string            `bson:"reasons" json:"reasons"`
	Description    string              `bson:"description,omitempty" json:"description,omitempty"`
	Status         string              `bson:"status" json:"status"`
	ResolutionNote string              `bson:"resolution_note,omitempty" json:"resolution_note,omitempty"`
	ClosedBy       *primitive.ObjectID `bson:"closed_by,omitempty" json:"closed_by,omitempty"`
	ClosedAt       *time.Time          `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}
