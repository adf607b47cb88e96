package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"
)

// APIResponse is the envelope every auth endpoint returns
type APIResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message,omitempty"`
	Code         string       `json:"code,omitempty"`
	Token        string       `json:"token,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *UserSummary `json:"user,omitempty"`
}

type AuthControllerRoutes struct {
	Base           string
	Register       string
	Login          string
	Refresh        string
	ForgotPassword string
	ResetPassword  string
	Me             string
	ChangePassword string
	Logout         string
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Sessions *SessionManager
	Guard    *Guard
	Routes   *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Base:           "/api/auth",
			Register:       "/register",
			Login:          "/login",
			Refresh:        "/refresh",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
			Me:             "/me",
			ChangePassword: "/change-password",
			Logout:         "/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing Guard in auth controller...")
	}

	return c
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerSessions sets the session manager backing the endpoints
func WithControllerSessions(sessions *SessionManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sessions = sessions
		return c
	}
}

// WithControllerGuard sets the guard protecting the session endpoints
func WithControllerGuard(guard *Guard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

// WithControllerDebug toggles payload dumps on the endpoints
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegisterAuthRoutes mounts the session endpoints under the controller's
// base path. The last three routes run behind the guard.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	grp := app.Group(controller.Routes.Base)

	grp.Post(controller.Routes.Register, controller.Register)
	grp.Post(controller.Routes.Login, controller.Login)
	grp.Post(controller.Routes.Refresh, controller.Refresh)
	grp.Post(controller.Routes.ForgotPassword, controller.ForgotPassword)
	grp.Post(controller.Routes.ResetPassword, controller.ResetPassword)

	protected := controller.Guard.Authenticate()
	grp.Get(controller.Routes.Me, protected, controller.Me)
	grp.Put(controller.Routes.ChangePassword, protected, controller.ChangePassword)
	grp.Post(controller.Routes.Logout, protected, controller.Logout)

	return controller
}

// RegisterRequest payload. Note there is no role field: self-registration
// always lands on the default role, only trusted callers assign roles.
type RegisterRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone_number" json:"phone_number"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name, validation.Required, validation.Length(1, 50)),
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid registration payload")
}

func (a *AuthController) Register(ctx *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload: ", "error", err)
		return respondError(ctx, a.Logger, ErrUnableToParseData)
	}

	if err := payload.Validate(); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	session, err := a.Sessions.Register(ctx.UserContext(), RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
	})
	if err != nil {
		return respondError(ctx, a.Logger, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(APIResponse{
		Success:      true,
		Message:      "User registered successfully",
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid login payload")
}

func (a *AuthController) Login(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return respondError(ctx, a.Logger, ErrUnableToParseData)
	}

	if err := payload.Validate(); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	session, err := a.Sessions.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return respondError(ctx, a.Logger, err)
	}

	return ctx.JSON(APIResponse{
		Success:      true,
		Message:      "Login successful",
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refreshToken" json:"refreshToken"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.RefreshToken, validation.Required),
		)
	}, "Invalid refresh payload")
}

func (a *AuthController) Refresh(ctx *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("refresh parse payload: ", "error", err)
		return respondError(ctx, a.Logger, ErrUnableToParseData)
	}

	if err := payload.Validate(); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	session, err := a.Sessions.Refresh(ctx.UserContext(), payload.RefreshToken)
	if err != nil {
		return respondError(ctx, a.Logger, err)
	}

	return ctx.JSON(APIResponse{
		Success:      true,
		Message:      "Token refreshed successfully",
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
		)
	}, "Invalid password reset payload")
}

// ForgotPassword responds identically whether or not the account exists.
// Since outbound email is out of scope, the minted token is only logged.
func (a *AuthController) ForgotPassword(ctx *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("forgot password parse payload: ", "error", err)
		return respondError(ctx, a.Logger, ErrUnableToParseData)
	}

	if err := payload.Validate(); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	reset, err := a.Sessions.ForgotPassword(ctx.UserContext(), payload.Email)
	if err != nil {
		return respondError(ctx, a.Logger, err)
	}

	if reset.AccountFound {
		a.Logger.Info("password reset token issued", "email", NormalizeEmail(payload.Email), "expires_at", reset.ExpiresAt)
	}

	return ctx.JSON(APIResponse{
		Success: true,
		Message: "If that email is registered, a password reset token has been sent",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Token, validation.Required),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid password reset payload")
}

func (a *AuthController) ResetPassword(ctx *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload: ", "error", err)
		return respondError(ctx, a.Logger, ErrUnableToParseData)
	}

	if err := payload.Validate(); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	session, err := a.Sessions.ResetPassword(ctx.UserContext(), payload.Token, payload.Password)
	if err != nil {
		return respondError(ctx, a.Logger, err)
	}

	return ctx.JSON(APIResponse{
		Success:      true,
		Message:      "Password reset successful",
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"currentPassword" json:"currentPassword"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.CurrentPassword, validation.Required),
			validation.Field(&r.NewPassword, validation.Required),
		)
	}, "Invalid password change payload")
}

func (a *AuthController) ChangePassword(ctx *fiber.Ctx) error {
	user, ok := UserFromFiber(ctx)
	if !ok {
		return respondError(ctx, a.Logger, ErrUnableToDecodeSession)
	}

	payload := new(ChangePasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("change password parse payload: ", "error", err)
		return respondError(ctx, a.Logger, ErrUnableToParseData)
	}

	if err := payload.Validate(); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	session, err := a.Sessions.ChangePassword(ctx.UserContext(), user.ID, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return respondError(ctx, a.Logger, err)
	}

	return ctx.JSON(APIResponse{
		Success:      true,
		Message:      "Password changed successfully",
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

func (a *AuthController) Logout(ctx *fiber.Ctx) error {
	user, ok := UserFromFiber(ctx)
	if !ok {
		return respondError(ctx, a.Logger, ErrUnableToDecodeSession)
	}

	if err := a.Sessions.Logout(ctx.UserContext(), user.ID); err != nil {
		return respondError(ctx, a.Logger, err)
	}

	return ctx.JSON(APIResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

func (a *AuthController) Me(ctx *fiber.Ctx) error {
	user, ok := UserFromFiber(ctx)
	if !ok {
		return respondError(ctx, a.Logger, ErrUnableToDecodeSession)
	}

	return ctx.JSON(APIResponse{
		Success: true,
		User:    user.Sanitize(),
	})
}

// ValidPhoneNumber accepts empty values and otherwise requires a parseable,
// valid phone number.
func ValidPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("invalid phone number")
	}

	return nil
}

// respondError maps rich errors onto the response envelope. Internal errors
// get a generic message; the details only go to the log.
func respondError(c *fiber.Ctx, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	status := fiber.StatusInternalServerError
	message := "Something went wrong"
	code := ""

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth:
			status = fiber.StatusUnauthorized
		case goerrors.CategoryAuthz:
			status = fiber.StatusForbidden
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			status = fiber.StatusBadRequest
		case goerrors.CategoryConflict:
			status = fiber.StatusConflict
		case goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		case goerrors.CategoryRateLimit:
			status = fiber.StatusTooManyRequests
		default:
			status = fiber.StatusInternalServerError
		}

		if status != fiber.StatusInternalServerError {
			message = rich.Message
			code = rich.TextCode
		}
	}

	if status == fiber.StatusInternalServerError {
		logger.Error("auth request failed: ", "error", err)
	} else {
		logger.Debug("auth request rejected: ", "error", err)
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}
