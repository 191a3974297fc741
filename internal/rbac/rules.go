package rbac

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const (
	PermTestView       = "test:view"
	PermTestSubmit     = "test:submit"
	PermTestCreate     = "test:create"
	PermQuestionCreate = "question:create"
	PermResultViewOwn  = "result:view-own"
	PermResultViewAll  = "result:view-all"
	PermResultRank     = "result:rank"
)

var RolePermissions = map[string][]string{
	RoleStudent: {
		PermTestView,
		PermTestSubmit,
		PermResultViewOwn,
		PermResultRank,
	},
	RoleAdmin: {
		"*", // everything
	},
}
