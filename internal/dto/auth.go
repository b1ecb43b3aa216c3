package dto

// LoginRequest is the payload of the operator login form.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginResponse is returned to API clients after a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}
