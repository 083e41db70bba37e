package request

type CreateUserRequest struct {
	Username  string  `json:"username" validate:"required,max=150,username"`
	Email     string  `json:"email" validate:"required,max=254,email"`
	FirstName string  `json:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" validate:"max=150"`
	Bio       string  `json:"bio" validate:"max=2000"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=user moderator admin"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged.
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,max=150,username"`
	Email     *string `json:"email,omitempty" validate:"omitempty,max=254,email"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=user moderator admin"`
}
