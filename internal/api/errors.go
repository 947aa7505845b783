package api

import "errors"

// ErrInvalidRoute — шаблон маршрута не разобран.
var ErrInvalidRoute = errors.New("invalid route pattern")
