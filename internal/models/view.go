package models

// View identifies one of the list perspectives the app presents. The remote
// store pushes part of each view's filtering into its query; the rest is
// applied client-side so that online and offline reads agree.
type View string

const (
	// ViewOverview lists items the current user participates in.
	ViewOverview View = "overview"
	// ViewHistory lists participant items that have already ended.
	ViewHistory View = "history"
	// ViewSearch lists public upcoming items the user has no part in.
	ViewSearch View = "search"
	// ViewMap lists located items that are upcoming, or running with the
	// user participating.
	ViewMap View = "map"
)

// MembershipResult is the outcome of a group join or leave request,
// modeled explicitly so callers can branch without inspecting error text.
type MembershipResult int

const (
	MembershipOK MembershipResult = iota
	MembershipAlreadyMember
	MembershipNotAMember
	MembershipNotFound
)

// String returns a human-readable name for logging.
func (r MembershipResult) String() string {
	switch r {
	case MembershipOK:
		return "ok"
	case MembershipAlreadyMember:
		return "already-member"
	case MembershipNotAMember:
		return "not-a-member"
	case MembershipNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}
