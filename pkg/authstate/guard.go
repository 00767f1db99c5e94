package authstate

// Decision is the route guard's three-way (plus content) verdict, a pure
// function of the published snapshot.
type Decision int

const (
	// ShowLoading renders a non-committal placeholder, optionally with a
	// manual retry. No redirects while loading.
	ShowLoading Decision = iota
	// RedirectToLogin applies only once loading has settled with no user.
	RedirectToLogin
	// ProfileMissing is terminal: user present, profile absent after
	// resolution settled. It must surface an explicit error with a recovery
	// action, never a silent redirect to login.
	ProfileMissing
	// ShowContent renders the protected surface. Role flags drive navigation
	// only; enforcement is the backend's job.
	ShowContent
)

func (d Decision) String() string {
	switch d {
	case ShowLoading:
		return "loading"
	case RedirectToLogin:
		return "redirect-to-login"
	case ProfileMissing:
		return "profile-missing"
	case ShowContent:
		return "content"
	default:
		return "unknown"
	}
}

func Decide(s Snapshot) Decision {
	switch {
	case s.Loading:
		return ShowLoading
	case s.User == nil:
		return RedirectToLogin
	case s.Profile == nil:
		return ProfileMissing
	default:
		return ShowContent
	}
}
