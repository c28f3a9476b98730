package models

// Error taxonomy for the API. Handlers translate these into HTTP statuses
// at the response boundary; anything else surfaces as a 500 with a generic
// message. ValidationError also covers malformed ids and missing referenced
// entities, which the API reports as 400 (404 is reserved for the entity
// addressed by the request path).

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
