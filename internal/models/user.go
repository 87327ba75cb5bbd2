package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DefaultImageURL       = "/static/images/default-pic.svg"
	DefaultHeaderImageURL = "/static/images/warbler-hero.svg"
)

// User is a registered Warbler account
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"size:30;not null;uniqueIndex"`
	Email          string    `json:"email" gorm:"size:50;not null;uniqueIndex"`
	ImageURL       string    `json:"image_url" gorm:"size:255"`
	HeaderImageURL string    `json:"header_image_url" gorm:"size:255"`
	Bio            string    `json:"bio" gorm:"type:text"`
	Location       string    `json:"location" gorm:"size:30"`
	Password       string    `json:"-" gorm:"not null"`             // bcrypt hash
	FirebaseUID    *string   `json:"-" gorm:"size:128;uniqueIndex"` // only set for Firebase sign-ins
	CreatedAt      time.Time `json:"created_at"`
}

// UserCompact is the public projection of a user used in JSON payloads
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
}

// ToCompact returns the public projection of u
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, ImageURL: u.ImageURL}
}

// BeforeCreate fills in default images
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ApplyImageDefaults()
	return nil
}

// ApplyImageDefaults resets blank image URLs to the stock images
func (u *User) ApplyImageDefaults() {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
}

// SetPassword stores the bcrypt hash of plain
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword reports whether plain matches the stored hash
func (u *User) CheckPassword(plain string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// SignupForm is the body of POST /signup
type SignupForm struct {
	Username string `form:"username" json:"username" validate:"required,max=30"`
	Email    string `form:"email" json:"email" validate:"required,email,max=50"`
	Password string `form:"password" json:"password" validate:"required,min=6,max=50"`
	ImageURL string `form:"image_url" json:"image_url" validate:"omitempty,url,max=255"`
}

// LoginForm is the body of POST /login and POST /api/v1/auth/token
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required,max=30"`
	Password string `form:"password" json:"password" validate:"required,min=6,max=50"`
}

// UpdateProfileForm is the body of POST /users/profile. Password confirms the change.
type UpdateProfileForm struct {
	Username       string `form:"username" validate:"required,max=30"`
	Email          string `form:"email" validate:"required,email,max=50"`
	ImageURL       string `form:"image_url" validate:"omitempty,url|startswith=/static/,max=255"`
	HeaderImageURL string `form:"header_image_url" validate:"omitempty,url|startswith=/static/,max=255"`
	Bio            string `form:"bio" validate:"max=500"`
	Location       string `form:"location" validate:"max=30"`
	Password       string `form:"password" validate:"required,min=6,max=50"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
