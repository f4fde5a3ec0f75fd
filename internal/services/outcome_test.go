package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The mobile clients branch on these exact strings; changing any of them is
// a breaking API change.
func TestClientMessages(t *testing.T) {
	assert.Equal(t, "yes", OutcomeYes.ClientMessage())
	assert.Equal(t, "no", OutcomeNo.ClientMessage())
	assert.Equal(t, "matched", OutcomeMatched.ClientMessage())
	assert.Equal(t, "notmatched", OutcomeNotMatched.ClientMessage())
	assert.Equal(t, "requestsent", OutcomeAlreadyPending.ClientMessage())
	assert.Equal(t, "requestaccepted", OutcomeAlreadyActive.ClientMessage())
	assert.Equal(t, "requestaccepted", OutcomeApproved.ClientMessage())
	assert.Equal(t, "Permission request sent successfully", OutcomeRequestCreated.ClientMessage())
	assert.Equal(t, "removed", OutcomeRemoved.ClientMessage())
	assert.Equal(t, "User joined group successfully", OutcomeJoined.ClientMessage())
	assert.Equal(t, "User removed from the group and unfollowed", OutcomeLeft.ClientMessage())
	assert.Equal(t, "User added to group successfully", OutcomeAdded.ClientMessage())
	assert.Equal(t, "usertype updated", OutcomeRoleChanged.ClientMessage())
	assert.Equal(t, "User details updated successfully", OutcomeFollowed.ClientMessage())
	assert.Equal(t, "Records already existed and were deleted", OutcomeUnfollowed.ClientMessage())
}
