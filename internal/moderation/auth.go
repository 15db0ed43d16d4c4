package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService 版务登录与令牌签发
type AuthService struct {
	cfg *config.ModerationConfig
	gdb *gorm.DB
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.ModerationConfig, gdb *gorm.DB) *AuthService {
	return &AuthService{cfg: cfg, gdb: gdb}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func (s *AuthService) expireHours() int {
	if s.cfg.AuthExpireHours > 0 {
		return s.cfg.AuthExpireHours
	}
	return 24
}

// GenerateJWT 为用户签发令牌
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.expireHours()) * time.Hour)

	claims := JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.AuthSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseJWT 解析并校验令牌
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.AuthSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GetUserByUsername 按用户名查用户；不存在返回 nil
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.gdb.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login 版务登录，成功时更新最后登录时间
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, time.Time, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", time.Time{}, response.NewTransientError("failed to look up user", err)
	}
	if user == nil || !user.Active {
		return nil, "", time.Time{}, response.NewAuthError(ErrInvalidCredentials.Error())
	}

	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, response.NewAuthError(ErrInvalidCredentials.Error())
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", time.Time{}, response.NewTransientError("failed to sign token", err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.gdb.WithContext(ctx).Model(user).Update("last_login_at", &now).Error; err != nil {
		return nil, "", time.Time{}, response.NewTransientError("failed to update user", err)
	}

	logger.Infow("mod_login", "username", username)
	return user, token, expiresAt, nil
}

// CreateUser 新建版务用户
func (s *AuthService) CreateUser(ctx context.Context, username, password, notes string, isAdmin bool) (*models.User, error) {
	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, response.NewTransientError("failed to look up user", err)
	}
	if existing != nil {
		return nil, response.NewUserInputError("username already taken")
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, response.NewTransientError("failed to hash password", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		IsAdmin:      isAdmin,
		Notes:        notes,
	}
	if err := s.gdb.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, response.NewTransientError("failed to create user", err)
	}
	return &user, nil
}

// ListUsers 按创建时间列出全部版务账号
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.gdb.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, response.NewTransientError("failed to list users", err)
	}
	return users, nil
}

// SetUserActive 启用或停用账号
func (s *AuthService) SetUserActive(ctx context.Context, username string, active bool) error {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return response.NewTransientError("failed to look up user", err)
	}
	if user == nil {
		return response.NewNotFoundError("user not found")
	}
	if err := s.gdb.WithContext(ctx).Model(user).Update("active", active).Error; err != nil {
		return response.NewTransientError("failed to update user", err)
	}
	return nil
}

// EnsureAdmin 确保至少有一个管理员，空库时按配置播种
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	return models.InitDefaultAdmin(s.gdb.WithContext(ctx), s.cfg.AdminUser, s.cfg.AdminPassword)
}
