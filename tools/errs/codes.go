package errs

const (
	BadRequestError      = 400
	UnauthenticatedError = 401
	ForbiddenError       = 403
	NotFoundError        = 404
	ServerInternalError  = 500
	TransientError       = 503
)

var (
	ErrBadRequest      = NewCodeError(BadRequestError, "bad request")
	ErrUnauthenticated = NewCodeError(UnauthenticatedError, "unauthenticated")
	ErrForbidden       = NewCodeError(ForbiddenError, "forbidden")
	ErrRecordNotFound  = NewCodeError(NotFoundError, "record not found")
	ErrInternal        = NewCodeError(ServerInternalError, "internal error")
	ErrTransient       = NewCodeError(TransientError, "service temporarily unavailable")
)
