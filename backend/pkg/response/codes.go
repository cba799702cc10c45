package response

// 业务错误码：1xxxx 通用 / 认证，2xxxx 账号，3xxxx 部门，5xxxx 服务端
const (
	CodeSuccess = 0

	CodeValidation      = 10001
	CodeUnauthenticated = 10002
	CodeForbidden       = 10003
	CodeTooManyRequests = 10004
	CodeBodyTooLarge    = 10005

	CodeInvalidCredentials  = 11001
	CodeAccountLocked       = 11002
	CodeAccountInactive     = 11003
	CodeInvalidRefreshToken = 11004
	CodeOldPasswordMismatch = 11005

	CodeAccountNotFound    = 20001
	CodeEmailExists        = 20002
	CodeUsernameRequired   = 20003
	CodeSuperuserFlags     = 20004
	CodeSelfDelete         = 20005
	CodeSuperuserProtected = 20006
	CodeImportParseFailed  = 20007
	CodeInvalidStatus      = 20008
	CodeImportDisabled     = 20009
	CodeExportTooLarge     = 20010

	CodeDepartmentNotFound = 30001
	CodeLeaderTaken        = 30002

	CodeInternal = 50000
)
