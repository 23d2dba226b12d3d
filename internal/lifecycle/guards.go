package lifecycle

import (
	"bizmatch/internal/identity"
	"bizmatch/internal/model"
)

// CanDecide reports whether actor may accept or reject m. The proposer
// cannot decide on their own proposal.
func CanDecide(m *model.Match, actor identity.Identity) bool {
	return actor.ID != "" && actor.ID != m.ProposerID
}

// CanContract reports whether actor may turn m into a contract: the
// proposer, the job owner or the talent owner.
func CanContract(m *model.Match, job *model.JobPost, talent *model.TalentProfile, actor identity.Identity) bool {
	if actor.ID == "" {
		return false
	}
	return actor.ID == m.ProposerID || actor.ID == job.UserID || actor.ID == talent.UserID
}

// CanDriveAssignment reports whether actor may pause, resume or complete a.
// Only the client side holds that right.
func CanDriveAssignment(a *model.Assignment, actor identity.Identity) bool {
	return actor.ID != "" && actor.ID == a.ClientUserID
}

// CanViewMatch reports whether actor may read m.
func CanViewMatch(m *model.Match, job *model.JobPost, talent *model.TalentProfile, actor identity.Identity) bool {
	return actor.IsAdmin() || CanContract(m, job, talent, actor)
}

// CanViewAssignment reports whether actor may read or annotate a.
func CanViewAssignment(a *model.Assignment, actor identity.Identity) bool {
	return actor.IsAdmin() || a.IsParty(actor.ID)
}
