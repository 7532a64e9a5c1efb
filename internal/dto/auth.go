package dto

// SignupRequest enrolls a new account. Password is optional at signup;
// logins always go through an OTP challenge.
type SignupRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=50"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required,e164"`
	Password   string `json:"password" binding:"omitempty,loginpassword"`
	OtpChannel string `json:"otpChannel" binding:"omitempty,oneof=email phone"`
}

type SignupResponse struct {
	Status string `json:"status"`
	Next   string `json:"next"`
}

// LoginRequest starts a login challenge for an email address or phone number.
type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required,emailorphone"`
}

type RequestOtpRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email phone"`
	Email   string `json:"email" binding:"omitempty"`
	Phone   string `json:"phone" binding:"omitempty"`
}

type VerifyOtpRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email phone"`
	Email   string `json:"email" binding:"omitempty"`
	Phone   string `json:"phone" binding:"omitempty"`
	Code    string `json:"code" binding:"required,otpcode"`
}

type ForgotPasswordRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email phone"`
	Email   string `json:"email" binding:"omitempty"`
	Phone   string `json:"phone" binding:"omitempty"`
}

type ResetPasswordRequest struct {
	Channel     string `json:"channel" binding:"required,oneof=email phone"`
	Email       string `json:"email" binding:"omitempty"`
	Phone       string `json:"phone" binding:"omitempty"`
	Code        string `json:"code" binding:"required,otpcode"`
	NewPassword string `json:"newPassword" binding:"required,loginpassword"`
}

// UserResponse is the public projection of a user. Credential fields and
// the token version never leave the service.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type VerifyOtpResponse struct {
	Status string       `json:"status"`
	User   UserResponse `json:"user"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
