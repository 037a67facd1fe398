package domain

import "errors"

var (
	ErrRetrievalUnavailable      = errors.New("retrieval unavailable")
	ErrModelUnparsable           = errors.New("model output unparsable")
	ErrInvalidCriteriaDefinition = errors.New("invalid criteria definition")
	ErrCriteriaNotFound          = errors.New("criteria not found for topic")
	ErrDanglingRelation          = errors.New("relation references unknown entity")
	ErrEntityNotFound            = errors.New("entity not found")
	ErrInvalidQuestion           = errors.New("question is required")
)
