package permissions

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	FaceEnroll       = "face.enroll"
	AttendanceRecord = "attendance.record"
	PlateDetect      = "plate.detect"
	PlateManage      = "plate.manage"
	ParkingManage    = "parking.manage"
	ParkingAnalyze   = "parking.analyze"
	ReportsView      = "reports.view"
	ReportsViewAll   = "reports.view.all"
)

// PermissionDefinition describes a single, specific permission
type PermissionDefinition struct {
	Key         string `json:"key"`         // unique key, e.g., "plate.detect"
	Name        string `json:"name"`        // friendly name
	Description string `json:"description"` // what the permission allows
}

// PermissionGroupDefinition groups related permissions
type PermissionGroupDefinition struct {
	Key         string                 `json:"key"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Permissions []PermissionDefinition `json:"permissions"`
}

// DefinedPermissionGroups holds all statically defined permission groups and their permissions
var DefinedPermissionGroups = []PermissionGroupDefinition{
	{
		Key:         "attendance",
		Name:        "Attendance",
		Description: "Face enrollment and face-based check-in.",
		Permissions: []PermissionDefinition{
			{Key: FaceEnroll, Name: "Enroll Face", Description: "Allows registering or replacing one's own face embedding."},
			{Key: AttendanceRecord, Name: "Record Attendance", Description: "Allows checking in and out with a face capture."},
		},
	},
	{
		Key:         "plate",
		Name:        "Plate Access",
		Description: "Licence plate detection and the authorised vehicle list.",
		Permissions: []PermissionDefinition{
			{Key: PlateDetect, Name: "Detect Plate", Description: "Allows submitting vehicle captures for plate detection."},
			{Key: PlateManage, Name: "Manage Plates", Description: "Allows registering vehicles and changing their authorisation."},
		},
	},
	{
		Key:         "parking",
		Name:        "Parking",
		Description: "Parking spaces and occupancy analysis.",
		Permissions: []PermissionDefinition{
			{Key: ParkingManage, Name: "Manage Spaces", Description: "Allows creating parking spaces."},
			{Key: ParkingAnalyze, Name: "Analyze Lot", Description: "Allows submitting lot images for occupancy analysis."},
		},
	},
	{
		Key:         "reports",
		Name:        "Reports",
		Description: "Aggregated statistics and exports.",
		Permissions: []PermissionDefinition{
			{Key: ReportsView, Name: "View Reports", Description: "Allows viewing one's own attendance reports."},
			{Key: ReportsViewAll, Name: "View Organization Reports", Description: "Allows viewing reports for the whole organization."},
		},
	},
}

var rolePermissions = map[string][]string{
	RoleUser: {FaceEnroll, AttendanceRecord, PlateDetect, ReportsView},
}

// RoleHas reports whether role grants permission. Admin holds every defined
// permission.
func RoleHas(role, permission string) bool {
	if role == RoleAdmin {
		return IsDefined(permission)
	}
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// IsDefined reports whether key names a known permission.
func IsDefined(key string) bool {
	for _, g := range DefinedPermissionGroups {
		for _, p := range g.Permissions {
			if p.Key == key {
				return true
			}
		}
	}
	return false
}

// ForRole lists the permissions a role holds.
func ForRole(role string) []string {
	var out []string
	for _, g := range DefinedPermissionGroups {
		for _, p := range g.Permissions {
			if RoleHas(role, p.Key) {
				out = append(out, p.Key)
			}
		}
	}
	return out
}
