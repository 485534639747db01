package toolflow

import "errors"

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrBadFlowType  = errors.New("unknown flow type")
	ErrNoSteps      = errors.New("flow has no steps")
)
