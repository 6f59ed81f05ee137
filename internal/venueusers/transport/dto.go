package transport

// ProvisionRequest is the JSON body of the provisioning endpoint.
// Field checks happen in the service so that they run before any remote call.
type ProvisionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	VenueID  string `json:"venueId"`
}

type ProvisionResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
}
