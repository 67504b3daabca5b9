package users

type CreateUserRequest struct {
	Name      string `json:"name" binding:"required,min=2"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"omitempty"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

// UpdateUserRequest changes profile fields only. Nil fields are left as they are.
type UpdateUserRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=2"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Role      *string `json:"role"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"omitempty,min=8"`
}

type ResetPasswordResponse struct {
	Email string `json:"email"`
	// only set when the server generated the password
	TemporaryPassword string `json:"temporary_password,omitempty"`
}
