package models

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title    string `form:"title" json:"title" validate:"required,max=100"`
	Text     string `form:"text" json:"text" validate:"required"`
	Category string `form:"category" json:"category" validate:"required,category"`
}

// ReviewInput carries the editable fields of a review. Rate is a pointer so
// that a missing rating is distinguishable from a zero-star rating.
type ReviewInput struct {
	Title string `form:"title" json:"title" validate:"required,max=100"`
	Text  string `form:"text" json:"text" validate:"required"`
	Rate  *int   `form:"rate" json:"rate" validate:"required,gte=0,lte=5"`
}

// SignupInput is the registration form.
type SignupInput struct {
	Username  string `form:"username" json:"username" validate:"required,max=150,username"`
	Password1 string `form:"password1" json:"password1" validate:"required"`
	Password2 string `form:"password2" json:"password2" validate:"required,eqfield=Password1"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// ProfileInput updates username and password together; the current
// password must be supplied.
type ProfileInput struct {
	Username        string `form:"username" json:"username" validate:"required,max=150,username"`
	CurrentPassword string `form:"current_password" json:"current_password" validate:"required"`
	NewPassword1    string `form:"new_password1" json:"new_password1" validate:"required"`
	NewPassword2    string `form:"new_password2" json:"new_password2" validate:"required,eqfield=NewPassword1"`
}
