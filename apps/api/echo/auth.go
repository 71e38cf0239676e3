package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
	"github.com/trezcool/labtrack/core/user"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

// newAppJWTConfig builds the JWT auth middleware config.
func newAppJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`      // -> which portal
	TeacherID    string `json:"teacher_id,omitempty"` // set for teachers
	Roll         int64  `json:"roll,omitempty"`       // set for students
}

func (c Claims) IsAdmin() bool   { return c.Role == core.RoleAdmin }
func (c Claims) IsTeacher() bool { return c.Role == core.RoleTeacher }
func (c Claims) IsStudent() bool { return c.Role == core.RoleStudent }

// Caller converts the claims into the domain caller context.
func (c Claims) Caller() core.Caller {
	return core.Caller{
		UserID:    c.Subject,
		Role:      c.Role,
		TeacherID: c.TeacherID,
		Roll:      c.Roll,
	}
}

// authenticator issues and refreshes claims. Teacher accounts are linked to
// their teacher record via user ID; student accounts carry their roll number
// as username.
type authenticator struct {
	conf        *core.Config
	usrSvc      user.ServiceInterface
	rosterSvc   roster.ServiceInterface
	teachingSvc teaching.ServiceInterface
}

func (a *authenticator) getUserClaims(ctx echo.Context, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			Audience:  "LabTrack",
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
	}

	switch {
	case usr.IsTeacher():
		if tchr, err := a.teachingSvc.GetTeacherByUserID(ctx.Request().Context(), usr.ID); err == nil {
			claims.TeacherID = tchr.ID
		}
	case usr.IsStudent():
		if roll, err := roster.ParseRoll(usr.Username); err == nil {
			if _, err = a.rosterSvc.GetStudentByRoll(ctx.Request().Context(), roll); err == nil {
				claims.Roll = roll
			}
		}
	}
	return claims
}

func (a *authenticator) authenticate(ctx echo.Context, uname, pwd string) (*Claims, error) {
	usr, err := a.usrSvc.GetByUsernameOrEmail(ctx.Request().Context(), uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = a.usrSvc.SetLastLogin(ctx.Request().Context(), usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.getUserClaims(ctx, usr), nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, a.usrSvc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if usr.IsActive != nil && !*usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := a.getUserClaims(ctx, usr, claims.OrigIssuedAt)
	token, err := GenerateToken(a.conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextCaller(ctx echo.Context) (core.Caller, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Caller{}, err
	}
	return claims.Caller(), nil
}

func getContextUser(ctx echo.Context, svc user.ServiceInterface, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
