package porkbun

// Credentials authenticate every Porkbun API call.
// They are sent verbatim as part of the JSON request body.
type Credentials struct {
	APIKey       string `json:"apikey"`
	SecretAPIKey string `json:"secretapikey"`
}

// String masks both keys so credentials can be printed safely.
func (c Credentials) String() string {
	return "porkbun.Credentials{APIKey: " + mask(c.APIKey) + ", SecretAPIKey: " + mask(c.SecretAPIKey) + "}"
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "*****"
}
