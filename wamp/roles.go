package wamp

// Role names advertised in HELLO.details.roles and parsed from
// WELCOME.details.roles. Grounded on the WAMP basic-profile role set;
// named the same way nexus (a Go WAMP router) names them, for wire
// compatibility of the string values, not for any shared code.
const (
	RoleCaller     = "caller"
	RoleCallee     = "callee"
	RolePublisher  = "publisher"
	RoleSubscriber = "subscriber"
	RoleBroker     = "broker"
	RoleDealer     = "dealer"
)

// RoleSet is the advertised-or-observed set of WAMP roles for one side
// of a session.
type RoleSet map[string]Dict

// NewClientRoleSet returns the basic-profile client role set: caller,
// subscriber, and publisher are always present; callee is added only
// when the session was configured to support registrations.
func NewClientRoleSet(supportsCallee bool) RoleSet {
	rs := RoleSet{
		RoleCaller:     Dict{},
		RoleSubscriber: Dict{},
		RolePublisher:  Dict{},
	}
	if supportsCallee {
		rs[RoleCallee] = Dict{}
	}
	return rs
}

// ParseRouterRoles extracts the router's advertised role names from the
// `roles` key of a WELCOME.details map. Unknown shapes are ignored
// rather than treated as fatal; absence of `roles` yields an empty set.
func ParseRouterRoles(details Dict) RoleSet {
	rs := RoleSet{}
	raw, ok := details["roles"]
	if !ok {
		return rs
	}
	switch m := raw.(type) {
	case map[string]interface{}:
		for k, v := range m {
			rs[k] = asDict(v)
		}
	case Dict:
		for k, v := range m {
			rs[k] = asDict(v)
		}
	}
	return rs
}

func asDict(v interface{}) Dict {
	switch d := v.(type) {
	case Dict:
		return d
	case map[string]interface{}:
		return Dict(d)
	default:
		return Dict{}
	}
}

// Has reports whether the role set contains the named role.
func (rs RoleSet) Has(name string) bool {
	_, ok := rs[name]
	return ok
}

// ToDict returns the role set in the Dict shape expected inside a
// HELLO.details["roles"] field.
func (rs RoleSet) ToDict() Dict {
	d := Dict{}
	for k, v := range rs {
		d[k] = v
	}
	return d
}
