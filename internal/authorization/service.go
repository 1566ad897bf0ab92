package authorization

import (
	"context"
	"errors"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service answers "may this actor perform this action on this object within
// this tenant". Actors are "user:<id>" or "system".
type Service interface {
	Authorize(ctx context.Context, actor, tenantID, object, action string) error
}
