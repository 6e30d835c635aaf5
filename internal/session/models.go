package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Role is the coarse access level attached to a user.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleMLEngineer    Role = "ml_engineer"
	RoleDataScientist Role = "data_scientist"
	RoleMLOpsEngineer Role = "mlops_engineer"
	RoleAnalyst       Role = "analyst"
	RoleViewer        Role = "viewer"
)

// Permission names a single console capability.
type Permission string

const (
	PermProjectsRead     Permission = "projects:read"
	PermProjectsWrite    Permission = "projects:write"
	PermPipelinesRun     Permission = "pipelines:run"
	PermPipelinesWrite   Permission = "pipelines:write"
	PermModelsWrite      Permission = "models:write"
	PermModelsApprove    Permission = "models:approve"
	PermDeploymentsWrite Permission = "deployments:write"
	PermMonitorsWrite    Permission = "monitors:write"
	PermSchedulesWrite   Permission = "schedules:write"
	PermReportsGenerate  Permission = "reports:generate"
	PermAuditClear       Permission = "audit:clear"
)

// rolePermissions is the static role→permission table. Admin is handled in
// HasPermission and implicitly holds every permission.
var rolePermissions = map[Role][]Permission{
	RoleMLEngineer: {
		PermProjectsRead, PermProjectsWrite,
		PermPipelinesRun, PermPipelinesWrite,
		PermModelsWrite,
	},
	RoleDataScientist: {
		PermProjectsRead, PermProjectsWrite,
		PermPipelinesRun,
		PermModelsWrite, PermReportsGenerate,
	},
	RoleMLOpsEngineer: {
		PermProjectsRead,
		PermPipelinesRun,
		PermDeploymentsWrite, PermMonitorsWrite, PermSchedulesWrite,
	},
	RoleAnalyst: {
		PermProjectsRead, PermReportsGenerate,
	},
	RoleViewer: {
		PermProjectsRead,
	},
}

// User is the authenticated console user.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  Role     `json:"role"`
	Teams []string `json:"teams"`
}

// InTeam returns true if the user belongs to the given team.
func (u *User) InTeam(team string) bool {
	for _, t := range u.Teams {
		if t == team {
			return true
		}
	}
	return false
}

// demoUser pairs a canned user record with the SHA-256 digest of its demo
// password. Plaintext passwords never appear in source; these logins bypass
// the backend and are gated behind auth.demo_logins.
type demoUser struct {
	passwordDigest string
	user           User
}

var demoUsers = map[string]demoUser{
	"demo@mlmonitoring.com": {
		passwordDigest: "d3ad9315b7be5dd53b31a273b3b3aba5defe700808305aa16a3062b76658a791",
		user: User{
			ID:    "demo-admin",
			Email: "demo@mlmonitoring.com",
			Name:  "Demo Admin",
			Role:  RoleAdmin,
			Teams: []string{"platform"},
		},
	},
	"engineer@mlmonitoring.com": {
		passwordDigest: "80ca306ac6e68366dd0a26125c9647e0c61fac6668cec6016f5fe30fb12e99bd",
		user: User{
			ID:    "demo-engineer",
			Email: "engineer@mlmonitoring.com",
			Name:  "Demo Engineer",
			Role:  RoleMLEngineer,
			Teams: []string{"ml-team"},
		},
	},
	"viewer@mlmonitoring.com": {
		passwordDigest: "65375049b9e4d7cad6c9ba286fdeb9394b28135a3e84136404cfccfdcc438894",
		user: User{
			ID:    "demo-viewer",
			Email: "viewer@mlmonitoring.com",
			Name:  "Demo Viewer",
			Role:  RoleViewer,
			Teams: nil,
		},
	},
}

// lookupDemoUser resolves a demo credential pair. The digest comparison is
// constant-time.
func lookupDemoUser(email, password string) (*User, bool) {
	d, ok := demoUsers[email]
	if !ok {
		return nil, false
	}
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(digest), []byte(d.passwordDigest)) != 1 {
		return nil, false
	}
	u := d.user
	return &u, true
}
