package services

// Outcome is the closed result set of a social-graph operation. Internally
// everything is tagged; the legacy client vocabulary ("yes", "requestsent",
// ...) is produced only at the HTTP boundary via ClientMessage, since client
// code branches on the exact strings.
type Outcome int

const (
	OutcomeJoined Outcome = iota
	OutcomeLeft
	OutcomeRequestCreated
	OutcomeAlreadyPending
	OutcomeAlreadyActive
	OutcomeApproved
	OutcomeAdded
	OutcomeRoleChanged
	OutcomeRemoved
	OutcomeFollowed
	OutcomeUnfollowed
	OutcomeYes
	OutcomeNo
	OutcomeMatched
	OutcomeNotMatched
)

// ClientMessage returns the wire string the mobile clients branch on.
func (o Outcome) ClientMessage() string {
	switch o {
	case OutcomeJoined:
		return "User joined group successfully"
	case OutcomeLeft:
		return "User removed from the group and unfollowed"
	case OutcomeRequestCreated:
		return "Permission request sent successfully"
	case OutcomeAlreadyPending:
		return "requestsent"
	case OutcomeAlreadyActive:
		return "requestaccepted"
	case OutcomeApproved:
		return "requestaccepted"
	case OutcomeAdded:
		return "User added to group successfully"
	case OutcomeRoleChanged:
		return "usertype updated"
	case OutcomeRemoved:
		return "removed"
	case OutcomeFollowed:
		return "User details updated successfully"
	case OutcomeUnfollowed:
		return "Records already existed and were deleted"
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	case OutcomeMatched:
		return "matched"
	case OutcomeNotMatched:
		return "notmatched"
	}
	return "unknown"
}
