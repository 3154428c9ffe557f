package authorization

import "errors"

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidSubject = errors.New("invalid_subject")
)
