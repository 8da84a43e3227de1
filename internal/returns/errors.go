package returns

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrRecordNotFound       = errors.New("return or exchange not found")
	ErrActiveRequestExists  = errors.New("order already has an open return or exchange")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)
