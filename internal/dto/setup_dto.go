package dto

// SetupCredentials is the backend URL/key pair pasted into the setup
// screen or carried inside a magic link.
type SetupCredentials struct {
	URL string `json:"url" validate:"required,url"`
	Key string `json:"key" validate:"required,min=8"`
}

// SetupValidateResponse reports the outcome of the probe read.
type SetupValidateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// MagicLinkResponse carries the encoded configuration blob to embed in a
// shareable link.
type MagicLinkResponse struct {
	Config string `json:"config"`
	Link   string `json:"link"`
}
