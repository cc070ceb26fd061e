package talim

import (
	"time"

	"github.com/uzbek-talim/talim/session"
)

// TokenPair is the credential response of the auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// LoginResult bundles the installed identity with the issued tokens.
type LoginResult struct {
	Identity     *session.Identity
	AccessToken  string
	RefreshToken string
}

// RegisterRequest creates a new account. Phone is the login identifier.
type RegisterRequest struct {
	Phone     string `json:"phone" validate:"required,e164"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=student teacher"`
}

// TelegramAuthRequest carries the signed payload of a Telegram login widget.
type TelegramAuthRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name,omitempty"`
	Username   string `json:"username,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
	AuthDate   int64  `json:"auth_date" validate:"required"`
	Hash       string `json:"hash" validate:"required"`
}

// ChangePasswordRequest rotates the account password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// VerifyPhoneRequest confirms a phone number with an SMS code.
type VerifyPhoneRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required"`
}

// TelegramCodeRequest asks the bot to send a one-time code to a phone.
type TelegramCodeRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// VerifyTelegramCodeRequest redeems a one-time Telegram code. With
// ReturnTokens the backend answers with a token pair instead of a bare
// confirmation.
type VerifyTelegramCodeRequest struct {
	Phone        string `json:"phone" validate:"required,e164"`
	Code         string `json:"code" validate:"required"`
	ReturnTokens bool   `json:"return_tokens,omitempty"`
}

// UpdateProfileRequest patches the mutable profile fields. Nil fields are
// left untouched.
type UpdateProfileRequest struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Specialization *string `json:"specialization,omitempty"`
}

// Course is a catalog entry.
type Course struct {
	ID          int       `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	TeacherID   string    `json:"teacher_id,omitempty"`
	Price       int64     `json:"price,omitempty"`
	Published   bool      `json:"is_published"`
	CoverURL    string    `json:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// CreateCourseRequest creates or replaces a course entry.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price" validate:"gte=0"`
	CoverURL    string `json:"cover_url,omitempty" validate:"omitempty,url"`
}

// Option is one selectable answer of a question.
type Option struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Question is one test question with its options. Correct answers are never
// present in responses served to students.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Test is a timed assessment.
type Test struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	CourseID        int        `json:"course_id,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Gated           bool       `json:"is_gated,omitempty"`
	Questions       []Question `json:"questions,omitempty"`
}

// CreateTestRequest creates or replaces a test definition.
type CreateTestRequest struct {
	Title           string                  `json:"title" validate:"required"`
	CourseID        int                     `json:"course_id" validate:"required"`
	DurationMinutes int                     `json:"duration_minutes" validate:"required,min=1"`
	AccessKey       string                  `json:"access_key,omitempty"`
	Questions       []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// CreateQuestionRequest is one question of a test being created.
type CreateQuestionRequest struct {
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectOption int      `json:"correct_option" validate:"gte=0"`
}

// TestResult is the graded outcome of a submitted attempt.
type TestResult struct {
	TestID      int       `json:"test_id"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Correct     int       `json:"correct_answers"`
	Total       int       `json:"total_questions"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Payment is one tuition payment as seen by managers and admins.
type Payment struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  int       `json:"course_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePaymentRequest records a tuition payment for confirmation.
type CreatePaymentRequest struct {
	CourseID int   `json:"course_id" validate:"required"`
	Amount   int64 `json:"amount" validate:"required,gt=0"`
}

// CreateUserRequest provisions an account from the admin surface.
type CreateUserRequest struct {
	Phone     string `json:"phone" validate:"required,e164"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=student teacher manager admin"`
}

// UpdateUserRequest patches an account from the admin surface. Nil fields
// are left untouched.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=student teacher manager admin"`
	Active    *bool   `json:"is_active,omitempty"`
}

// UserAccount is the admin-surface view of a user.
type UserAccount struct {
	ID        string       `json:"id"`
	Phone     string       `json:"phone"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Role      session.Role `json:"role"`
	Active    bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}
