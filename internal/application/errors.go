package application

import "errors"

var ErrBadRequest = errors.New("bad request")
var ErrNoHistory = errors.New("history storage disabled")
