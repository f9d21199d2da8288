// Package conversation tracks per-user progress through guided multi-step flows.
package conversation

// Kind tags the step a user is at. Idle is an explicit state, not the absence of one.
type Kind int

const (
	Idle Kind = iota
	AwaitingReportLink
	AwaitingUsername
	AwaitingUsernameViolationLink
	AwaitingBanTarget
	AwaitingUnbanTarget
	AwaitingUserInfoTarget
	AwaitingRevokeVipTarget
	AwaitingGrantVipTarget
	AwaitingLogsTarget
	AwaitingBroadcastBody
)

var kindNames = map[Kind]string{
	Idle:                          "idle",
	AwaitingReportLink:            "awaiting_report_link",
	AwaitingUsername:              "awaiting_username",
	AwaitingUsernameViolationLink: "awaiting_username_violation_link",
	AwaitingBanTarget:             "awaiting_ban_target",
	AwaitingUnbanTarget:           "awaiting_unban_target",
	AwaitingUserInfoTarget:        "awaiting_user_info_target",
	AwaitingRevokeVipTarget:       "awaiting_revoke_vip_target",
	AwaitingGrantVipTarget:        "awaiting_grant_vip_target",
	AwaitingLogsTarget:            "awaiting_logs_target",
	AwaitingBroadcastBody:         "awaiting_broadcast_body",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsAdmin reports whether the step belongs to an admin data-entry flow.
func (k Kind) IsAdmin() bool {
	return k >= AwaitingBanTarget && k <= AwaitingBroadcastBody
}

// MethodUsername is the report method that asks for a username before the link.
const MethodUsername = "username"

// State is the tagged value stored per user. Method and Username carry the
// partial input of the report flows and are empty otherwise.
type State struct {
	Kind     Kind
	Method   string
	Username string
}

// IdleState is the state of every user without an open flow.
func IdleState() State {
	return State{Kind: Idle}
}

// BeginReport starts a report flow for the chosen method.
func BeginReport(method string) State {
	if method == MethodUsername {
		return State{Kind: AwaitingUsername, Method: method}
	}
	return State{Kind: AwaitingReportLink, Method: method}
}

// WithUsername advances the username flow to the violation link step.
func (s State) WithUsername(username string) State {
	return State{Kind: AwaitingUsernameViolationLink, Method: s.Method, Username: username}
}

// Begin starts an admin flow at the given step.
func Begin(kind Kind) State {
	return State{Kind: kind}
}
