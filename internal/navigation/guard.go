package navigation

import "github.com/jedmamosto/tupv-project-sub000/internal/domain/model"

type Principal struct {
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

// State は (user, loading) の組。Userがnilなら未ログイン。
type State struct {
	Loading bool       `json:"loading"`
	User    *Principal `json:"user"`
}

type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusAnonymous Status = "anonymous"
	StatusCustomer  Status = "customer"
	StatusVendor    Status = "vendor"
	StatusInvalid   Status = "invalid_role"
)

func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusUnknown
	case s.User == nil:
		return StatusAnonymous
	case s.User.Role == model.RoleCustomer:
		return StatusCustomer
	case s.User.Role == model.RoleVendor:
		return StatusVendor
	default:
		return StatusInvalid
	}
}

type Decision struct {
	Redirect bool   `json:"redirect"`
	Target   string `json:"target,omitempty"`
}

var stay = Decision{}

func redirectTo(r Route) Decision {
	return Decision{Redirect: true, Target: r.Info().Path}
}

// Decide は現在いるグループが許されるかを判定する
func Decide(state State, group Group) Decision {
	switch state.Status() {
	case StatusUnknown:
		return stay
	case StatusAnonymous:
		if group == GroupAuth {
			return stay
		}
		return redirectTo(RouteLogin)
	case StatusCustomer:
		if group == GroupCustomer {
			return stay
		}
		return redirectTo(RouteHome)
	case StatusVendor:
		if group == GroupVendor {
			return stay
		}
		return redirectTo(RouteVendorDashboard)
	default:
		return redirectTo(RouteLogin)
	}
}
