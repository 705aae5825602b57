package model

// User is the identity the auth collaborator hands us. The interaction
// engine only ever reads it; account lifecycle lives elsewhere.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	PhotoURL    string `json:"photoURL,omitempty"`
}
