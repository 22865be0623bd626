package capabilities

// Capability names one permitted action. Views and middleware check typed
// capabilities instead of ad hoc permission-string lookups.
type Capability string

const (
	CandidatesRead  Capability = "candidates:read"
	CandidatesBulk  Capability = "candidates:bulk_upload"
	TasksPoll       Capability = "tasks:poll"
	PermissionsRead Capability = "permissions:read"
)

// Set is the resolved capability set for one principal's role.
type Set map[Capability]struct{}

// Can reports whether the set grants the capability.
func (s Set) Can(cap Capability) bool {
	_, ok := s[cap]
	return ok
}

// List returns the capabilities as sorted-insensitive string slice for display.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for cap := range s {
		out = append(out, string(cap))
	}
	return out
}
