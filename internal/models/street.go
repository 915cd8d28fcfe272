package models

// Street is a named street residents live on and routes visit.
type Street struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AddStreetRequest defines the input for creating a street.
type AddStreetRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}
